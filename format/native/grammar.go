package native

import (
	"regexp"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// identPattern matches bare kinds and keys. Colons are allowed only between
// name characters so "level: 1" still lexes as an identifier and a colon.
const identPattern = `[a-zA-Z_][a-zA-Z0-9_.\-]*(?::[a-zA-Z_][a-zA-Z0-9_.\-]*)*`

var identRe = regexp.MustCompile(`^` + identPattern + `$`)

// nativeLexer tokenizes the native text format. Order matters: floats must be
// tried before integers.
var nativeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Float", Pattern: `[-+]?(?:\d+\.\d*(?:[eE][-+]?\d+)?|\d+[eE][-+]?\d+)`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "Ident", Pattern: identPattern},
	{Name: "Punct", Pattern: `[{}\[\],:@]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

//nolint:govet // participle grammar tags are not standard struct tags
type fileAST struct {
	Metadata  *propsAST      `( "metadata" @@ )?`
	Source    *sourceAST     `( "source" @@ )?`
	Resources []*resourceAST `( "resource" @@ )*`
	Content   *nodeAST       `"content" @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type sourceAST struct {
	Format   string    `@String`
	Metadata *propsAST `@@?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type resourceAST struct {
	Pos    lexer.Position
	ID     string    `@String`
	Fields *propsAST `@@`
}

// nodeAST is `kind "content"? { props }? [ children ]?`. A kind that is not a
// bare identifier is written as @"kind".
//
//nolint:govet // participle grammar tags are not standard struct tags
type nodeAST struct {
	Pos    lexer.Position
	Tokens []lexer.Token

	Kind     string       `( @Ident | "@" @String )`
	Content  *string      `@String?`
	Props    *propsAST    `@@?`
	Children *childrenAST `@@?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type childrenAST struct {
	Nodes []*nodeAST `"[" @@* "]"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type propsAST struct {
	Entries []*entryAST `"{" @@* "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type entryAST struct {
	Pos   lexer.Position
	Key   string    `@(Ident | String) ":"`
	Value *valueAST `@@ ","?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type valueAST struct {
	String *string   `  @String`
	Float  *float64  `| @Float`
	Int    *int64    `| @Int`
	Bool   *boolean  `| @("true" | "false")`
	List   *listAST  `| @@`
	Map    *propsAST `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type listAST struct {
	Items []*valueAST `"[" ( @@ ","? )* "]"`
}

type boolean bool

func (b *boolean) Capture(values []string) error {
	*b = values[0] == "true"
	return nil
}

var nativeParser = participle.MustBuild[fileAST](
	participle.Lexer(nativeLexer),
	participle.Elide("Comment", "Whitespace"),
)
