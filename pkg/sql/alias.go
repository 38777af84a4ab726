package sql

import "strings"

// TableRef is one table item parsed from a FROM or JOIN clause.
type TableRef struct {
	Schema string // schema qualifier, empty if none
	Table  string // final name segment, original case
	Alias  string // explicit alias (AS or bare), empty if none
	Pos    int    // byte offset of the table name in the original SQL
}

// Name returns the alias if present, otherwise the table name. This is the
// identifier a column qualifier resolves against.
func (r TableRef) Name() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Table
}

type word struct {
	text string
	pos  int
}

// isIdentByte reports whether c can appear inside an identifier.
func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// scanWords splits code-only SQL into identifier/number words and
// single-character punctuation, preserving byte offsets.
func scanWords(code string) []word {
	var words []word
	i := 0
	for i < len(code) {
		c := code[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentByte(c):
			j := i + 1
			for j < len(code) && isIdentByte(code[j]) {
				j++
			}
			words = append(words, word{text: code[i:j], pos: i})
			i = j
		default:
			words = append(words, word{text: string(c), pos: i})
			i++
		}
	}
	return words
}

// fromItemTerminators end a comma-separated FROM item list.
var fromItemTerminators = map[string]bool{
	"where": true, "group": true, "order": true, "having": true,
	"limit": true, "offset": true, "fetch": true, "union": true,
	"intersect": true, "except": true, "on": true, "using": true,
	"join": true, "left": true, "right": true, "full": true, "inner": true,
	"outer": true, "cross": true, "natural": true, "window": true,
	"for": true, "returning": true,
}

// datePartWords precede FROM inside EXTRACT-style expressions; a FROM after
// one of these introduces no table.
var datePartWords = map[string]bool{
	"year": true, "month": true, "day": true, "hour": true, "minute": true,
	"second": true, "quarter": true, "week": true, "dow": true, "doy": true,
	"epoch": true, "century": true, "decade": true, "millennium": true,
	"microseconds": true, "milliseconds": true, "timezone": true,
	"isodow": true, "isoyear": true,
	// TRIM('x' FROM y), SUBSTRING(s FROM 1), POSITION(a IN b)
	"both": true, "leading": true, "trailing": true, "distinct": true,
}

// expressionFuncs take FROM/IN as part of their argument syntax.
var expressionFuncs = map[string]bool{
	"extract": true, "substring": true, "trim": true, "overlay": true,
	"position": true,
}

// ParseTableRefs extracts every table item introduced by FROM or JOIN in the
// statement, in source order. Literal and comment content is ignored.
// Subqueries in FROM are skipped as units, but their aliases are recorded so
// qualified references against them resolve.
//
// EXTRACT(YEAR FROM x) and friends are excluded: a FROM directly preceded by
// a date-part keyword, or the first word after an opening parenthesis that
// follows EXTRACT/SUBSTRING/TRIM/OVERLAY, introduces no table.
func ParseTableRefs(sql string) []TableRef {
	return parseRefs(scanWords(CodeOnly(sql)))
}

// parseRefs walks a word slice; parseTableItem re-enters it for the bodies of
// derived tables so subquery tables are extracted too.
func parseRefs(words []word) []TableRef {
	var refs []TableRef

	// funcStack tracks the function name owning each open parenthesis, so a
	// FROM inside EXTRACT(...)/SUBSTRING(...)/TRIM(...) is not clause syntax.
	var funcStack []string

	for i := 0; i < len(words); i++ {
		switch words[i].text {
		case "(":
			fn := ""
			if i > 0 && isIdentWord(words[i-1].text) {
				fn = strings.ToLower(words[i-1].text)
			}
			funcStack = append(funcStack, fn)
			continue
		case ")":
			if len(funcStack) > 0 {
				funcStack = funcStack[:len(funcStack)-1]
			}
			continue
		}

		w := strings.ToLower(words[i].text)
		if w != "from" && w != "join" {
			continue
		}
		if w == "from" {
			if i > 0 && datePartWords[strings.ToLower(words[i-1].text)] {
				continue
			}
			if len(funcStack) > 0 && expressionFuncs[funcStack[len(funcStack)-1]] {
				continue
			}
		}

		// Parse one or more comma-separated items (FROM a, b c, s.d AS e).
		// JOIN introduces exactly one item.
		for {
			ref, inner, next, ok := parseTableItem(words, i+1)
			refs = append(refs, inner...)
			if ok {
				refs = append(refs, ref)
			}
			i = next - 1
			if w != "from" || !ok || next >= len(words) || words[next].text != "," {
				break
			}
			i = next // position on the comma; loop re-parses after it
		}
	}
	return refs
}

// parseTableItem parses a single table item starting at words[start].
// Returns the parsed ref, refs extracted from a derived-table body, the index
// of the first word after the item, and whether a table name was found.
func parseTableItem(words []word, start int) (TableRef, []TableRef, int, bool) {
	i := start
	if i >= len(words) {
		return TableRef{}, nil, i, false
	}

	// Parenthesized subquery or derived table: extract the body's own tables,
	// then look for an alias so references against the derived table resolve.
	if words[i].text == "(" {
		depth := 1
		i++
		bodyStart := i
		for i < len(words) && depth > 0 {
			switch words[i].text {
			case "(":
				depth++
			case ")":
				depth--
			}
			i++
		}
		bodyEnd := i
		if bodyEnd > bodyStart {
			bodyEnd-- // exclude the closing paren
		}
		inner := parseRefs(words[bodyStart:bodyEnd])
		alias, next := parseAlias(words, i)
		if alias == "" {
			return TableRef{}, inner, next, false
		}
		return TableRef{Table: alias, Alias: alias, Pos: words[start].pos}, inner, next, true
	}

	if !isIdentWord(words[i].text) || fromItemTerminators[strings.ToLower(words[i].text)] {
		return TableRef{}, nil, i, false
	}

	// name segments: ident(.ident)*
	segments := []string{words[i].text}
	pos := words[i].pos
	i++
	for i+1 < len(words) && words[i].text == "." && isIdentWord(words[i+1].text) {
		segments = append(segments, words[i+1].text)
		i += 2
	}

	ref := TableRef{Table: segments[len(segments)-1], Pos: pos}
	if len(segments) > 1 {
		ref.Schema = strings.Join(segments[:len(segments)-1], ".")
	}

	ref.Alias, i = parseAlias(words, i)
	return ref, nil, i, true
}

// parseAlias consumes an optional `AS alias` or bare alias at words[i].
func parseAlias(words []word, i int) (string, int) {
	if i < len(words) && strings.EqualFold(words[i].text, "as") {
		if i+1 < len(words) && isIdentWord(words[i+1].text) {
			return words[i+1].text, i + 2
		}
		return "", i + 1
	}
	if i < len(words) && isIdentWord(words[i].text) && !fromItemTerminators[strings.ToLower(words[i].text)] {
		return words[i].text, i + 1
	}
	return "", i
}

func isIdentWord(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// CTENames returns the names defined by a leading WITH clause, lowercased.
// CTE names are addressable like tables but exist only inside the statement,
// so allow-list checks and alias resolution must treat them as defined.
func CTENames(sql string) map[string]bool {
	words := scanWords(CodeOnly(sql))
	names := make(map[string]bool)
	if len(words) == 0 || !strings.EqualFold(words[0].text, "with") {
		return names
	}

	i := 1
	if i < len(words) && strings.EqualFold(words[i].text, "recursive") {
		i++
	}
	for i < len(words) {
		if !isIdentWord(words[i].text) {
			break
		}
		names[strings.ToLower(words[i].text)] = true
		i++
		// Optional column list, then AS (body).
		for range 2 {
			if i < len(words) && words[i].text == "(" {
				depth := 1
				i++
				for i < len(words) && depth > 0 {
					switch words[i].text {
					case "(":
						depth++
					case ")":
						depth--
					}
					i++
				}
			} else if i < len(words) && strings.EqualFold(words[i].text, "as") {
				i++
			}
		}
		if i >= len(words) || words[i].text != "," {
			break
		}
		i++
	}
	return names
}

// AliasMap builds the qualifier resolution map for a statement: every alias
// and every bare table name maps to its table. CTE names map to themselves.
// Keys are lowercased.
func AliasMap(sql string) map[string]string {
	m := make(map[string]string)
	for name := range CTENames(sql) {
		m[name] = name
	}
	for _, ref := range ParseTableRefs(sql) {
		m[strings.ToLower(ref.Name())] = ref.Table
		// An unaliased qualified name is also addressable by its table name.
		if ref.Alias == "" {
			m[strings.ToLower(ref.Table)] = ref.Table
		}
	}
	return m
}

// ReferencedTables returns the distinct table names (final segments) used in
// FROM and JOIN clauses, in first-appearance order. CTE references and
// derived-table aliases are excluded; they are not schema tables.
func ReferencedTables(sql string) []string {
	ctes := CTENames(sql)
	seen := make(map[string]bool)
	var tables []string
	for _, ref := range ParseTableRefs(sql) {
		// Derived-table aliases are not real tables.
		if ref.Alias != "" && ref.Alias == ref.Table && ref.Schema == "" {
			continue
		}
		key := strings.ToLower(ref.Table)
		if ctes[key] && ref.Schema == "" {
			continue
		}
		if !seen[key] {
			seen[key] = true
			tables = append(tables, ref.Table)
		}
	}
	return tables
}
