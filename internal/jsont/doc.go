// Package jsont implements JSON Template, the small declarative template
// language page templates and computed variables are written in.
//
// A template is literal text interleaved with directives in braces:
//
//	{title}                       substitution (dotted names allowed)
//	{title|html}                  substitution through formatters
//	{@}                           the value under the cursor
//	{.section author}...{.or}...{.end}
//	{.repeated section docs}...{.alternates with}...{.end}
//	{.meta-left} {.meta-right}    literal braces
//	{.space} {.newline}
//	{# comment}
//
// A brace followed by whitespace, a closing brace, or a line break is
// literal text. The engine never sees the data directly; it expands against
// a Context that resolves names relative to a cursor.
package jsont
