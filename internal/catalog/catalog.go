// Package catalog loads and serves the indicator catalogue: the static,
// process-wide table of FAIR assessment check definitions.
//
// The catalogue is read once during startup from a CSV definition file
// (the authoritative upstream format), combined with the dependency
// declarations from configuration, validated, and never mutated
// afterwards. Consumers receive the table by injection; there is no
// package-level mutable state.
package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/faircombine/faircombine/internal/config"
	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// Column headers expected in the catalogue CSV file.
const (
	colName     = "TaskName"
	colGroup    = "TaskGroup"
	colSubGroup = "TaskSubGroup"
	colPriority = "TaskPriority"
	colQuestion = "TaskQuestion"
	colShort    = "TaskShortDescription"
	colDetails  = "TaskDetails"
)

// Catalog is the read-only indicator table. Indicators keep the order
// they appear in the definition file; task trees are built in that
// order.
type Catalog struct {
	ordered []*domain.Indicator
	byName  map[string]*domain.Indicator
}

// Load reads the catalogue CSV at cfg.Catalog.Path, attaches the
// dependency declarations from cfg, and validates the result. Any
// inconsistency is fatal: a duplicate indicator name, a dependency
// referencing an unknown indicator, or a duplicate entry within one
// declaration all abort startup with ErrConfiguration.
func Load(ctx context.Context, cfg *config.Config) (*Catalog, error) {
	f, err := os.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open catalogue %s: %s",
			fcerrors.ErrConfiguration, cfg.Catalog.Path, err)
	}
	defer func() { _ = f.Close() }()

	c, err := Parse(f, cfg.Catalog.Dependencies)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("component", "catalog").
		Str("path", cfg.Catalog.Path).
		Int("indicators", c.Len()).
		Msg("indicator catalogue loaded")
	return c, nil
}

// Parse reads catalogue records from r and binds the given dependency
// declarations. Exposed separately from Load for tests and alternative
// sources.
func Parse(r io.Reader, deps map[string]config.DependencyConfig) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read catalogue header: %s",
			fcerrors.ErrConfiguration, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colName, colGroup, colSubGroup, colPriority} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: catalogue is missing column %q",
				fcerrors.ErrConfiguration, required)
		}
	}

	c := &Catalog{byName: make(map[string]*domain.Indicator)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed catalogue record: %s",
				fcerrors.ErrConfiguration, err)
		}
		ind, err := parseRecord(record, cols)
		if err != nil {
			return nil, err
		}
		if _, exists := c.byName[ind.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate indicator %q in catalogue",
				fcerrors.ErrConfiguration, ind.Name)
		}
		c.ordered = append(c.ordered, ind)
		c.byName[ind.Name] = ind
	}

	if err := bindDependencies(c, deps); err != nil {
		return nil, err
	}
	return c, nil
}

// parseRecord converts one CSV record into an indicator.
func parseRecord(record []string, cols map[string]int) (*domain.Indicator, error) {
	field := func(col string) string {
		i, ok := cols[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	name := field(colName)
	if name == "" {
		return nil, fmt.Errorf("%w: catalogue record with empty indicator name",
			fcerrors.ErrConfiguration)
	}
	priority := constants.TaskPriority(strings.ToLower(field(colPriority)))
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: indicator %q has unknown priority %q",
			fcerrors.ErrConfiguration, name, field(colPriority))
	}

	return &domain.Indicator{
		Name:        name,
		Group:       field(colGroup),
		SubGroup:    field(colSubGroup),
		Priority:    priority,
		Question:    field(colQuestion),
		Short:       field(colShort),
		Description: field(colDetails),
	}, nil
}

// bindDependencies attaches the configured dependency declarations to
// their indicators, failing fast on unknown names.
func bindDependencies(c *Catalog, deps map[string]config.DependencyConfig) error {
	for dependent, decl := range deps {
		ind, ok := c.byName[dependent]
		if !ok {
			return fmt.Errorf("%w: dependency declared for unknown indicator %q",
				fcerrors.ErrConfiguration, dependent)
		}
		combinator := constants.Combinator(decl.Combinator)
		if decl.Combinator == "" {
			combinator = constants.CombinatorOR
		}
		if !combinator.Valid() {
			return fmt.Errorf("%w: indicator %q has unknown combinator %q",
				fcerrors.ErrConfiguration, dependent, decl.Combinator)
		}
		seen := make(map[string]struct{}, len(decl.DependsOn))
		for _, dep := range decl.DependsOn {
			if _, ok := c.byName[dep]; !ok {
				return fmt.Errorf("%w: indicator %q depends on unknown indicator %q",
					fcerrors.ErrConfiguration, dependent, dep)
			}
			if _, dup := seen[dep]; dup {
				return fmt.Errorf("%w: indicator %q lists dependency %q twice",
					fcerrors.ErrConfiguration, dependent, dep)
			}
			seen[dep] = struct{}{}
		}
		ind.Dependency = &domain.DependencyDeclaration{
			Combinator: combinator,
			DependsOn:  append([]string(nil), decl.DependsOn...),
		}
	}
	return nil
}

// All returns the indicators in definition order.
func (c *Catalog) All() []*domain.Indicator {
	out := make([]*domain.Indicator, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Get returns the indicator with the given name.
func (c *Catalog) Get(name string) (*domain.Indicator, bool) {
	ind, ok := c.byName[name]
	return ind, ok
}

// Names returns the indicator names in definition order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.ordered))
	for i, ind := range c.ordered {
		names[i] = ind.Name
	}
	return names
}

// Len returns the number of catalogued indicators.
func (c *Catalog) Len() int {
	return len(c.ordered)
}
