package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/query"
	"github.com/ThatForkyDev/membase/store"
)

type queryOptions struct {
	IDField string
	Indexes []string
	Limit   int
	Format  string
}

func newQueryCmd(cli *cliOptions) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query <fixture> <expression>",
		Short: "Print the fixture records matching a query",
		Long: `Load a JSON or YAML list of records, index them and print the records
matching the query expression.

Sections are separated by '|' and clauses inside a section by '&'. A clause
is index=key or index~key. Without --index flags every index named in the
expression is created over the field of the same name.`,
		Example: `  membase query people.yaml 'last=Doe & age=21 | tags~admin'
  membase query people.json 'city=berlin' --index 'city,ci' --format yaml
  membase query people.yaml 'last=Doe' --index 'last,max:age' --id id`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.OutOrStdout(), cli.logger, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.IDField, "id", "",
		"Record field holding the identity; records are identified by content when empty")
	cmd.Flags().StringArrayVar(&opts.Indexes, "index", nil,
		"Index as [name=]field[,ci][,min:FIELD|max:FIELD][,newest:N|oldest:N] (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", query.NoLimit, "Maximum number of records to print, negative for all")
	cmd.Flags().StringVar(&opts.Format, "format", "json", "Output format: json, yaml")

	return cmd
}

func runQuery(out io.Writer, logger *slog.Logger, opts *queryOptions, fixture, expr string) error {
	if logger == nil {
		logger = slog.Default()
	}

	q, names, err := parseQuery(expr)
	if err != nil {
		return err
	}

	specs, err := indexSpecs(opts.Indexes, names)
	if err != nil {
		return err
	}

	s, err := buildStore(fixture, opts.IDField, specs, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	results := s.GetLimit(q, opts.Limit)
	logger.Debug("query evaluated",
		"query", fmt.Sprint(q),
		"members", s.Size(),
		"matches", len(results))

	return writeRecords(out, opts.Format, results)
}

// indexSpecs parses the --index flags, or derives one plain index per name
// when none were given.
func indexSpecs(raw, names []string) ([]indexSpec, error) {
	if len(raw) == 0 {
		specs := make([]indexSpec, len(names))
		for i, name := range names {
			specs[i] = indexSpec{name: name, field: name}
		}
		return specs, nil
	}

	specs := make([]indexSpec, 0, len(raw))
	for _, r := range raw {
		spec, err := parseIndexSpec(r)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// buildStore loads fixture into a memory store. Records that fail to index
// are kept and logged.
func buildStore(fixture, idField string, specs []indexSpec, logger *slog.Logger) (*store.Memory[record], error) {
	records, err := loadFixture(fixture, idField)
	if err != nil {
		return nil, err
	}

	b := store.NewBuilder(
		store.WithLogger[record](logger),
		store.WithIdentity(recordIdentity(idField)),
	).WithValues(records...)
	for _, spec := range specs {
		b = b.WithIndex(spec.name, spec.definition())
	}

	s, err := b.Build()
	if s == nil {
		return nil, err
	}
	logIndexingFailures(logger, err)

	logger.Info("fixture loaded", "fixture", fixture, "records", len(records), "members", s.Size(),
		"indexes", len(specs))
	return s, nil
}

func logIndexingFailures(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	var ie *errors.IndexError
	if !stderrors.As(err, &ie) {
		logger.Warn("indexing failed", "error", err)
		return
	}
	for _, f := range ie.Failures {
		logger.Warn("record not indexed", "index", f.Index, "error", f.Err)
	}
}
