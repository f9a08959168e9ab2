package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/victor-base/victordb/vectorindex"
)

// IndexConfig is the Index Server's command-line surface (§6): -n and -d
// required, -t/-m/-u optional. This is the split-Config version, not a
// legacy combined Config/usage.
type IndexConfig struct {
	Name       string
	Dims       int
	IndexType  vectorindex.Type
	Method     vectorindex.Method
	SocketPath string // empty means "use the computed default"
}

// ParseIndexFlags parses args (normally os.Args[1:]) into an IndexConfig.
func ParseIndexFlags(fs *flag.FlagSet, args []string) (IndexConfig, error) {
	var (
		name       = fs.String("n", "", "database name (required)")
		dims       = fs.Int("d", 0, "vector dimensionality (required)")
		typeFlag   = fs.String("t", "hnsw", "index type: flat or hnsw")
		method     = fs.String("m", "cosine", "similarity method: cosine, dotp or l2norm")
		socketPath = fs.String("u", "", "Unix socket path (default computed from -n)")
	)
	if err := fs.Parse(args); err != nil {
		return IndexConfig{}, err
	}

	if *name == "" {
		return IndexConfig{}, errors.New("config: -n (database name) is required")
	}
	if *dims <= 0 {
		return IndexConfig{}, errors.New("config: -d (dimensionality) is required and must be positive")
	}

	typ, err := vectorindex.ParseType(*typeFlag)
	if err != nil {
		return IndexConfig{}, fmt.Errorf("config: -t: %w", err)
	}
	meth, err := vectorindex.ParseMethod(*method)
	if err != nil {
		return IndexConfig{}, fmt.Errorf("config: -m: %w", err)
	}

	return IndexConfig{
		Name:       *name,
		Dims:       *dims,
		IndexType:  typ,
		Method:     meth,
		SocketPath: *socketPath,
	}, nil
}

// TableConfig is the Table Server's command-line surface (§6): -n
// required, -u optional.
type TableConfig struct {
	Name       string
	SocketPath string
}

// ParseTableFlags parses args into a TableConfig.
func ParseTableFlags(fs *flag.FlagSet, args []string) (TableConfig, error) {
	var (
		name       = fs.String("n", "", "database name (required)")
		socketPath = fs.String("u", "", "Unix socket path (default computed from -n)")
	)
	if err := fs.Parse(args); err != nil {
		return TableConfig{}, err
	}
	if *name == "" {
		return TableConfig{}, errors.New("config: -n (database name) is required")
	}
	return TableConfig{Name: *name, SocketPath: *socketPath}, nil
}
