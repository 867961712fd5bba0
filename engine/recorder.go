package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/sentinelops/lewsboard/model"
)

// Recorder appends every acquisition cycle to a writer as JSON lines, for
// later drill replay.
type Recorder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewRecorder creates a recorder writing JSON lines to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: json.NewEncoder(w)}
}

// Record appends one cycle frame.
func (r *Recorder) Record(c model.Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(c)
}

// Player replays recorded cycle frames instead of the network. It satisfies
// Acquirer so the rest of the pipeline runs unchanged during a drill.
type Player struct {
	mu     sync.Mutex
	frames []model.Cycle
	idx    int
}

// NewPlayer loads frames from a recorded file (JSON lines). Malformed lines
// are skipped so a truncated recording still replays.
func NewPlayer(r io.Reader) (*Player, error) {
	var frames []model.Cycle
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		var c model.Cycle
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			continue
		}
		frames = append(frames, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Player{frames: frames}, nil
}

// Len returns the number of frames available.
func (p *Player) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// Acquire replays the next recorded frame, holding on the last frame once
// the recording is exhausted.
func (p *Player) Acquire(ctx context.Context) (*model.Payload, model.DataPath, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		return nil, model.PathNone, ErrNoCache
	}
	if p.idx >= len(p.frames) {
		p.idx = len(p.frames)
		f := p.frames[len(p.frames)-1]
		return f.Payload, f.Path, nil
	}
	f := p.frames[p.idx]
	p.idx++
	if f.Payload == nil {
		return nil, f.Path, ErrNoCache
	}
	return f.Payload, f.Path, nil
}
