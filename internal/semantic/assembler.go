package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/semgen/semgen/internal/llm"
	"github.com/semgen/semgen/internal/warehouse/snowflake"
)

// Metadata supplies base table columns with sample values. Implemented by
// the snowflake repository; tests use fakes.
type Metadata interface {
	ListColumns(ctx context.Context, table snowflake.FQN, sampleLimit int) ([]snowflake.Column, error)
}

// DescriptionGenerator produces one description per entity. Implemented by
// llm.Generator.
type DescriptionGenerator interface {
	Generate(ctx context.Context, req llm.Request) (llm.Result, error)
}

// AssemblyError reports a fail-fast abort during model construction, naming
// the entity whose generation failed.
type AssemblyError struct {
	Entity string
	Err    error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembling %s: %v", e.Entity, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

type Options struct {
	Name          string
	BaseTables    []string
	NSampleValues int
	AllowJoins    bool

	// BestEffort records an empty description and continues when an
	// entity's generation fails; the default aborts the whole run.
	BestEffort bool

	// Workers bounds concurrent description generations. 1 means
	// sequential assembly.
	Workers int
}

type Assembler struct {
	meta   Metadata
	gen    DescriptionGenerator
	opts   Options
	logger *slog.Logger
}

// NewAssembler builds an assembler. gen may be nil, in which case column
// comments from the warehouse are used and missing descriptions stay empty.
func NewAssembler(meta Metadata, gen DescriptionGenerator, opts Options, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Assembler{meta: meta, gen: gen, opts: opts, logger: logger}
}

// Build walks the base tables, generates descriptions for each table and
// column, and returns the assembled document. In fail-fast mode the first
// generation failure aborts the run and cancels in-flight calls.
func (a *Assembler) Build(ctx context.Context) (*Model, error) {
	model := &Model{Name: a.opts.Name}

	for _, raw := range a.opts.BaseTables {
		fqn, err := snowflake.ParseFQN(raw)
		if err != nil {
			return nil, err
		}
		columns, err := a.meta.ListColumns(ctx, fqn, a.opts.NSampleValues)
		if err != nil {
			return nil, fmt.Errorf("read metadata for %s: %w", fqn, err)
		}

		table := Table{
			Name:      fqn.Table,
			BaseTable: BaseTable{Database: fqn.Database, Schema: fqn.Schema, Table: fqn.Table},
			Columns:   make([]Column, len(columns)),
		}
		for i, col := range columns {
			table.Columns[i] = Column{
				Name: col.Name,
				Type: col.Type,
				// Warehouse comment stands in until a description is
				// generated, and survives as the placeholder when one
				// is not.
				Description:  col.Comment,
				SampleValues: col.SampleValues,
			}
		}
		model.Tables = append(model.Tables, table)
	}

	if err := a.describe(ctx, model); err != nil {
		return nil, err
	}

	if a.opts.AllowJoins {
		// Placeholder section: join semantics cannot be inferred from
		// column metadata alone.
		model.Relationships = []Relationship{}
	}
	return model, nil
}

// descTask addresses one entity's description slot by table and column
// index, so concurrent completion order never affects document order.
type descTask struct {
	tableIdx int
	colIdx   int // -1 for the table itself
	req      llm.Request
}

func (a *Assembler) describe(ctx context.Context, model *Model) error {
	if a.gen == nil {
		return nil
	}
	tasks := a.collectTasks(model)
	if a.opts.Workers <= 1 {
		return a.describeSequential(ctx, model, tasks)
	}
	return a.describeConcurrent(ctx, model, tasks)
}

func (a *Assembler) collectTasks(model *Model) []descTask {
	var tasks []descTask
	for ti := range model.Tables {
		table := &model.Tables[ti]
		schemaContext := tableContext(table)

		tasks = append(tasks, descTask{
			tableIdx: ti,
			colIdx:   -1,
			req: llm.Request{
				EntityName:    table.BaseTable.Database + "." + table.BaseTable.Schema + "." + table.Name,
				EntityKind:    llm.KindTable,
				SchemaContext: schemaContext,
			},
		})
		for ci := range table.Columns {
			tasks = append(tasks, descTask{
				tableIdx: ti,
				colIdx:   ci,
				req: llm.Request{
					EntityName:    table.Name + "." + table.Columns[ci].Name,
					EntityKind:    llm.KindColumn,
					SampleValues:  table.Columns[ci].SampleValues,
					SchemaContext: schemaContext,
				},
			})
		}
	}
	return tasks
}

func (a *Assembler) describeSequential(ctx context.Context, model *Model, tasks []descTask) error {
	for _, task := range tasks {
		result, err := a.gen.Generate(ctx, task.req)
		if err != nil {
			if !a.opts.BestEffort {
				return &AssemblyError{Entity: task.req.EntityName, Err: err}
			}
			a.warnSkipped(ctx, task.req.EntityName, err)
			continue
		}
		a.setDescription(model, task, result.Text)
	}
	return nil
}

func (a *Assembler) describeConcurrent(ctx context.Context, model *Model, tasks []descTask) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	texts := make([]string, len(tasks))
	errs := make([]error, len(tasks))

	sem := make(chan struct{}, a.opts.Workers)
	var wg sync.WaitGroup

	for i, task := range tasks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		}
		wg.Add(1)
		go func(i int, task descTask) {
			defer wg.Done()
			defer func() { <-sem }()
			result, err := a.gen.Generate(ctx, task.req)
			if err != nil {
				errs[i] = err
				if !a.opts.BestEffort {
					cancel()
				}
				return
			}
			texts[i] = result.Text
		}(i, task)
	}
	wg.Wait()

	if !a.opts.BestEffort {
		// Prefer the root failure over cancellation noise from siblings
		// that were cut short by it.
		firstIdx := -1
		for i := range tasks {
			if errs[i] == nil {
				continue
			}
			if firstIdx == -1 {
				firstIdx = i
			}
			if !errors.Is(errs[i], context.Canceled) {
				firstIdx = i
				break
			}
		}
		if firstIdx >= 0 {
			return &AssemblyError{Entity: tasks[firstIdx].req.EntityName, Err: errs[firstIdx]}
		}
	}

	for i, task := range tasks {
		if errs[i] != nil {
			a.warnSkipped(ctx, task.req.EntityName, errs[i])
			continue
		}
		a.setDescription(model, task, texts[i])
	}
	return nil
}

func (a *Assembler) setDescription(model *Model, task descTask, text string) {
	if task.colIdx < 0 {
		model.Tables[task.tableIdx].Description = text
		return
	}
	model.Tables[task.tableIdx].Columns[task.colIdx].Description = text
}

func (a *Assembler) warnSkipped(ctx context.Context, entity string, err error) {
	a.logger.WarnContext(ctx, "description generation failed, leaving placeholder",
		slog.String("entity", entity),
		slog.Any("error", err),
	)
}

// tableContext renders the deterministic schema summary included in every
// prompt for entities of one table.
func tableContext(table *Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table %s.%s.%s with columns:", table.BaseTable.Database, table.BaseTable.Schema, table.BaseTable.Table)
	for _, col := range table.Columns {
		fmt.Fprintf(&b, "\n- %s (%s)", col.Name, col.Type)
	}
	return b.String()
}
