package permission

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// DoomLoopThreshold is the number of identical consecutive calls that counts as a loop.
const DoomLoopThreshold = 3

const doomLoopHistory = 10

// DoomLoopDetector tracks recent tool calls to spot a model repeating itself.
type DoomLoopDetector struct {
	mu      sync.Mutex
	history []string
}

// NewDoomLoopDetector creates a new doom loop detector.
func NewDoomLoopDetector() *DoomLoopDetector {
	return &DoomLoopDetector{}
}

// Check records a call and reports whether it completes a run of DoomLoopThreshold
// identical calls.
func (d *DoomLoopDetector) Check(toolName string, input any) bool {
	hash := hashCall(toolName, input)

	d.mu.Lock()
	defer d.mu.Unlock()

	loop := len(d.history) >= DoomLoopThreshold-1
	for i := len(d.history) - (DoomLoopThreshold - 1); loop && i < len(d.history); i++ {
		if d.history[i] != hash {
			loop = false
		}
	}

	d.history = append(d.history, hash)
	if len(d.history) > doomLoopHistory {
		d.history = d.history[len(d.history)-doomLoopHistory:]
	}
	return loop
}

// Reset forgets every recorded call.
func (d *DoomLoopDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = nil
}

func hashCall(toolName string, input any) string {
	data, _ := json.Marshal(map[string]any{
		"tool":  toolName,
		"input": input,
	})
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
