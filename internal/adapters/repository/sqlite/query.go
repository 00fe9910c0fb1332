package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QueryResult is the tabular output of a console statement.
type QueryResult struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// maxQueryRows bounds console output.
const maxQueryRows = 500

var blockedPatterns = []string{
	".quit",
	".exit",
	".shell",
	".system",
	".load",
	".import",
	".output",
	".backup",
	".restore",
	"attach database",
	"detach database",
	"load_extension",
}

var allowedPrefixes = []string{"select", "with", "explain", "pragma"}

// readPragmas may be run bare from the console. Setting a pragma, even with
// the call form, changes the shared connection and is never allowed.
var readPragmas = map[string]bool{
	"collation_list":    true,
	"compile_options":   true,
	"database_list":     true,
	"encoding":          true,
	"foreign_key_check": true,
	"foreign_key_list":  true,
	"foreign_keys":      true,
	"function_list":     true,
	"index_info":        true,
	"index_list":        true,
	"index_xinfo":       true,
	"integrity_check":   true,
	"journal_mode":      true,
	"page_count":        true,
	"page_size":         true,
	"pragma_list":       true,
	"query_only":        true,
	"quick_check":       true,
	"schema_version":    true,
	"table_info":        true,
	"table_list":        true,
	"table_xinfo":       true,
	"user_version":      true,
}

// argPragmas take a table or index name as their argument.
var argPragmas = map[string]bool{
	"foreign_key_check": true,
	"foreign_key_list":  true,
	"index_info":        true,
	"index_list":        true,
	"index_xinfo":       true,
	"table_info":        true,
	"table_xinfo":       true,
}

// CheckReadOnly rejects statements the admin console must not run.
func CheckReadOnly(query string) error {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.TrimSuffix(q, ";")
	if q == "" {
		return fmt.Errorf("%w: empty statement", ErrReadOnly)
	}
	for _, p := range blockedPatterns {
		if strings.Contains(q, p) {
			return fmt.Errorf("%w: %q is blocked", ErrReadOnly, p)
		}
	}
	if strings.Contains(q, ";") {
		return fmt.Errorf("%w: multiple statements", ErrReadOnly)
	}
	allowed := false
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(q, p) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: statement must start with SELECT, WITH, EXPLAIN or PRAGMA", ErrReadOnly)
	}
	// EXPLAIN still compiles its statement, and pragmas act at compile time.
	stmt := q
	if rest, ok := strings.CutPrefix(stmt, "explain"); ok {
		stmt = strings.TrimSpace(rest)
		if rest, ok := strings.CutPrefix(stmt, "query plan"); ok {
			stmt = strings.TrimSpace(rest)
		}
	}
	if rest, ok := strings.CutPrefix(stmt, "pragma"); ok {
		return checkPragma(strings.TrimSpace(rest))
	}
	return checkPragmaFunctions(stmt)
}

// checkPragma accepts "name" and "schema.name" reads, and "name(table)" for
// the introspection pragmas. q is lower case with the keyword stripped.
func checkPragma(q string) error {
	if strings.Contains(q, "=") {
		return fmt.Errorf("%w: pragma assignments are blocked", ErrReadOnly)
	}
	name, arg, hasArg := strings.Cut(q, "(")
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if !readPragmas[name] {
		return fmt.Errorf("%w: pragma %q is not allowed", ErrReadOnly, name)
	}
	if !hasArg {
		return nil
	}
	if !argPragmas[name] {
		return fmt.Errorf("%w: pragma %q takes no argument here", ErrReadOnly, name)
	}
	arg, ok := strings.CutSuffix(strings.TrimSpace(arg), ")")
	if !ok || !isIdentifier(strings.Trim(strings.TrimSpace(arg), `'"`)) {
		return fmt.Errorf("%w: pragma %q argument must be a table or index name", ErrReadOnly, name)
	}
	return nil
}

// checkPragmaFunctions applies the same allow-list to table-valued pragma
// functions such as pragma_table_info('events').
func checkPragmaFunctions(q string) error {
	rest := q
	for {
		i := strings.Index(rest, "pragma_")
		if i < 0 {
			return nil
		}
		rest = rest[i+len("pragma_"):]
		end := 0
		for end < len(rest) && isIdentByte(rest[end]) {
			end++
		}
		if name := rest[:end]; !readPragmas[name] {
			return fmt.Errorf("%w: pragma function %q is not allowed", ErrReadOnly, name)
		}
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// Query runs a read-only statement for the admin console. The connection is
// switched to query_only for the duration so writes hidden in CTEs fail too.
func (s *Store) Query(ctx context.Context, query string) (QueryResult, error) {
	if err := CheckReadOnly(query); err != nil {
		return QueryResult{}, err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return QueryResult{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `PRAGMA query_only = ON`); err != nil {
		return QueryResult{}, fmt.Errorf("enable query_only: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `PRAGMA query_only = OFF`)
	}()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

func collectRows(rows *sql.Rows) (QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("columns: %w", err)
	}
	res := QueryResult{Columns: cols, Rows: [][]string{}}

	for rows.Next() && len(res.Rows) < maxQueryRows {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, fmt.Errorf("scan: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}
