package archive

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Codec describes one compression method: the archive file name it owns and
// how to wrap a raw stream for writing and reading.
type Codec struct {
	Method      Method
	FileName    string
	Description string
	// Priority orders codecs for Probe; higher wins.
	Priority  int
	NewWriter func(io.Writer) (io.WriteCloser, error)
	NewReader func(io.Reader) (io.ReadCloser, error)
}

var globalRegistry = newRegistry()

type registry struct {
	mu     sync.RWMutex
	codecs map[Method]Codec
}

func newRegistry() *registry {
	return &registry{codecs: make(map[Method]Codec)}
}

// Register adds a codec; duplicate methods and duplicate file names are rejected.
func Register(codec Codec) error {
	return globalRegistry.register(codec)
}

// MustRegister panics on registration failure, meant for init().
func MustRegister(codec Codec) {
	if err := Register(codec); err != nil {
		panic(err)
	}
}

// Lookup returns the codec registered for method.
func Lookup(method Method) (Codec, bool) {
	return globalRegistry.lookup(method)
}

// List returns registered codecs sorted by method name.
func List() []Codec {
	return globalRegistry.list()
}

// Methods returns the registered methods sorted by name.
func Methods() []Method {
	items := List()
	result := make([]Method, len(items))
	for i, codec := range items {
		result[i] = codec.Method
	}
	return result
}

// FileNames returns every archive file name a registered codec may produce.
func FileNames() []string {
	items := List()
	result := make([]string, len(items))
	for i, codec := range items {
		result[i] = codec.FileName
	}
	return result
}

func normalizeMethod(method Method) Method {
	return Method(strings.ToLower(strings.TrimSpace(string(method))))
}

func (r *registry) register(codec Codec) error {
	method := normalizeMethod(codec.Method)
	if method == "" || method == MethodAuto {
		return fmt.Errorf("codec method is required")
	}
	if codec.FileName == "" {
		return fmt.Errorf("codec %s: file name is required", method)
	}
	if codec.NewWriter == nil || codec.NewReader == nil {
		return fmt.Errorf("codec %s: reader and writer are required", method)
	}
	codec.Method = method

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codecs[method]; exists {
		return fmt.Errorf("codec %s already registered", method)
	}
	for _, existing := range r.codecs {
		if existing.FileName == codec.FileName {
			return fmt.Errorf("codec %s: file name %s already used by %s", method, codec.FileName, existing.Method)
		}
	}
	r.codecs[method] = codec
	return nil
}

func (r *registry) lookup(method Method) (Codec, bool) {
	normalized := normalizeMethod(method)
	if normalized == "" {
		return Codec{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	codec, ok := r.codecs[normalized]
	return codec, ok
}

func (r *registry) list() []Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.codecs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.codecs))
	for method := range r.codecs {
		keys = append(keys, string(method))
	}
	sort.Strings(keys)

	result := make([]Codec, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.codecs[Method(key)])
	}
	return result
}
