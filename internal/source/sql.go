package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dlclark/regexp2"
	"github.com/ohler55/ojg/oj"
)

var identifier = regexp2.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`, regexp2.None)

// SQL serves rows of one table, keyed by a column. Each row becomes a
// map from column name to value.
type SQL struct {
	db          *sql.DB
	table       string
	keyColumn   string
	jsonColumns map[string]bool
	query       string
}

type SQLOption func(*SQL)

// WithKeyColumn sets the column matched against the key. The default is
// "id".
func WithKeyColumn(name string) SQLOption { return func(s *SQL) { s.keyColumn = name } }

// WithJSONColumns lists columns holding JSON text. Their values are
// decoded so nested paths can reach into them.
func WithJSONColumns(names ...string) SQLOption {
	return func(s *SQL) {
		for _, n := range names {
			s.jsonColumns[n] = true
		}
	}
}

// NewSQL serves rows of table from db.
func NewSQL(db *sql.DB, table string, opts ...SQLOption) (*SQL, error) {
	s := &SQL{db: db, table: table, keyColumn: "id", jsonColumns: map[string]bool{}}
	for _, o := range opts {
		o(s)
	}
	for _, id := range []string{s.table, s.keyColumn} {
		if ok, err := identifier.MatchString(id); err != nil || !ok {
			return nil, fmt.Errorf("source: invalid SQL identifier %q", id)
		}
	}
	s.query = fmt.Sprintf(`SELECT * FROM "%s" WHERE "%s" = ? LIMIT 1`, s.table, s.keyColumn)
	return s, nil
}

func (s *SQL) Fetch(ctx context.Context, key string) (any, error) {
	rows, err := s.db.QueryContext(ctx, s.query, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, s.table, key)
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(map[string]any, len(cols))
	for i, c := range cols {
		v := vals[i]
		if s.jsonColumns[c] {
			if v, err = decodeJSON(v); err != nil {
				return nil, fmt.Errorf("source: column %s: %w", c, err)
			}
		}
		row[c] = v
	}
	return row, rows.Err()
}

func decodeJSON(v any) (any, error) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil, nil
		}
		return oj.ParseString(x)
	case []byte:
		if len(x) == 0 {
			return nil, nil
		}
		return oj.Parse(x)
	default:
		return v, nil
	}
}
