// Package capabilities resolves which tools and MCP servers an agent
// may use, from the agent-capabilities.json file in the data dir.
package capabilities

import (
	"encoding/json"
	"os"
	"sort"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/stridelabs/stride/internal/logging"
)

// DefaultTTL is how long a loaded capabilities file is trusted.
const DefaultTTL = 60 * time.Second

// Capability describes what one agent is allowed to reach.
type Capability struct {
	Tools      []string `json:"tools,omitempty"`
	MCPServers []string `json:"mcpServers,omitempty"`
	Model      string   `json:"model,omitempty"`
}

// File is the on-disk shape of agent-capabilities.json.
type File struct {
	Agents         map[string]Capability `json:"agents"`
	GlobalDefaults Capability            `json:"globalDefaults"`
}

// Resolver loads and caches agent capabilities.
type Resolver struct {
	path      string
	cache     *gocache.Cache
	fileReads atomic.Int64
}

const cacheKey = "capabilities"

// NewResolver creates a resolver for the given agent-capabilities.json path.
func NewResolver(path string, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		path:  path,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Invalidate drops the cached file so the next lookup re-reads disk.
func (r *Resolver) Invalidate() {
	r.cache.Delete(cacheKey)
}

// FileReads returns how many times the file was read from disk.
func (r *Resolver) FileReads() int64 {
	return r.fileReads.Load()
}

func (r *Resolver) load() File {
	if v, ok := r.cache.Get(cacheKey); ok {
		return v.(File)
	}

	var f File
	r.fileReads.Add(1)
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warnf("capabilities: read %s: %v", r.path, err)
		}
	} else if err := json.Unmarshal(data, &f); err != nil {
		logging.Warnf("capabilities: parse %s: %v", r.path, err)
		f = File{}
	}
	if f.Agents == nil {
		f.Agents = map[string]Capability{}
	}

	r.cache.SetDefault(cacheKey, f)
	return f
}

// Lookup resolves one agent's capability, merged over the global defaults.
// Unknown agents get the defaults alone.
func (r *Resolver) Lookup(agentID string) Capability {
	return r.Combined([]string{agentID})
}

// Combined resolves the union of capabilities across several agent ids,
// merged over the global defaults. Tool and server lists are deduplicated
// and sorted; the first non-empty model override wins.
func (r *Resolver) Combined(agentIDs []string) Capability {
	f := r.load()

	out := Capability{
		Tools:      append([]string(nil), f.GlobalDefaults.Tools...),
		MCPServers: append([]string(nil), f.GlobalDefaults.MCPServers...),
	}
	for _, id := range agentIDs {
		cap, ok := f.Agents[id]
		if !ok {
			continue
		}
		out.Tools = append(out.Tools, cap.Tools...)
		out.MCPServers = append(out.MCPServers, cap.MCPServers...)
		// First agent with a model override wins
		if out.Model == "" {
			out.Model = cap.Model
		}
	}
	if out.Model == "" {
		out.Model = f.GlobalDefaults.Model
	}

	out.Tools = dedupeSorted(out.Tools)
	out.MCPServers = dedupeSorted(out.MCPServers)
	return out
}

// AllowsServer reports whether the capability permits an MCP server.
// An empty server list means no restriction.
func (c Capability) AllowsServer(serverID string) bool {
	if len(c.MCPServers) == 0 {
		return true
	}
	for _, s := range c.MCPServers {
		if s == serverID {
			return true
		}
	}
	return false
}

func dedupeSorted(vals []string) []string {
	if len(vals) == 0 {
		return vals
	}
	sort.Strings(vals)
	out := vals[:1]
	for _, v := range vals[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
