package cacheproxy

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ResponseCache persists HTTP responses under (cache, key) pairs. A cache
// name is a storage generation; eviction happens only by deleting whole
// generations (see Router.Activate). Within a slot the newest successful
// response wins.
type ResponseCache struct {
	db *sql.DB
}

// NewResponseCache prepares the responses table on the given database.
func NewResponseCache(db *sql.DB) (*ResponseCache, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS responses (
		cache      TEXT NOT NULL,
		key        TEXT NOT NULL,
		status     INTEGER NOT NULL,
		header     TEXT NOT NULL,
		body       BLOB NOT NULL,
		fetched_at TIMESTAMP NOT NULL,
		PRIMARY KEY (cache, key)
	)`); err != nil {
		return nil, fmt.Errorf("init response cache: %w", err)
	}
	return &ResponseCache{db: db}, nil
}

// Put stores resp under (cache, key), replacing any previous entry. The
// response body is consumed and restored so the caller can still read it.
func (c *ResponseCache) Put(cache, key string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	header, err := json.Marshal(resp.Header)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(`INSERT INTO responses (cache, key, status, header, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache, key) DO UPDATE SET
			status = excluded.status, header = excluded.header,
			body = excluded.body, fetched_at = excluded.fetched_at`,
		cache, key, resp.StatusCode, string(header), body, time.Now().UTC())
	return err
}

// Get returns a replayable response for (cache, key), or ok=false.
func (c *ResponseCache) Get(cache, key string) (*http.Response, bool) {
	var (
		status    int
		headerRaw string
		body      []byte
	)
	err := c.db.QueryRow(`SELECT status, header, body FROM responses
		WHERE cache = ? AND key = ?`, cache, key).Scan(&status, &headerRaw, &body)
	if err != nil {
		return nil, false
	}
	header := http.Header{}
	_ = json.Unmarshal([]byte(headerRaw), &header)
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}, true
}

// Names returns the distinct cache generations present in storage.
func (c *ResponseCache) Names() ([]string, error) {
	rows, err := c.db.Query(`SELECT DISTINCT cache FROM responses`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// DeleteCache removes an entire cache generation.
func (c *ResponseCache) DeleteCache(name string) error {
	_, err := c.db.Exec(`DELETE FROM responses WHERE cache = ?`, name)
	return err
}

// Count returns the number of entries in a cache generation.
func (c *ResponseCache) Count(name string) (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM responses WHERE cache = ?`, name).Scan(&n)
	return n, err
}
