// Package stache provides a mustache-style text template engine built
// around filters.
//
// A filter is a named transformation called from a tag:
//
//	{{ uppercase(name) }}
//	{{ join(tags, ", ") }}
//	{{# isEmpty(items) }}nothing to show{{/}}
//
// # Quick Start
//
//	tmpl, err := stache.Parse("greeting", "Hello {{ capitalized(name) }}!")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := tmpl.Render(stache.TemplateData{"name": "ada lovelace"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out) // Hello Ada Lovelace!
//
// # Template Syntax
//
//	{{ expr }}             - Variable, HTML-escaped
//	{{{ expr }}}           - Variable, not escaped
//	{{& expr }}            - Variable, not escaped
//	{{# expr }}...{{/ expr }} - Section: rendered once per item, or once if truthy
//	{{^ expr }}...{{/ expr }} - Inverted section: rendered if falsy
//	{{! comment }}         - Comment
//
// Expressions are names (user.name), the implicit iterator ".", literals
// ("text", 42, true, nil) and filter calls f(x) or f(a, b, c). Calls
// compose: f(g(x)).
//
// # Filters
//
// There are three kinds of filters, each built with an adapter:
//
//	NewFilter(fn)          - value filter: transforms the input value
//	NewStringFilter(fn)    - string filter: transforms the rendering of the input
//	NewVariadicFilter(fn)  - variadic filter: receives every call argument
//
// A string filter does not render its input when it is applied. It returns
// a Renderable that renders the input once the enclosing tag renders, so
// the input is rendered the way the tag would render it, and the result
// keeps the HTML-safety rules of plain text.
//
// Filters are looked up in the rendered data first, then in the engine's
// registry:
//
//	engine := stache.New()
//	engine.RegisterFilter("shout", stache.StringFunc(func(s string) string {
//	    return s + "!"
//	}))
//
// Errors returned by filters are propagated unchanged to the caller of
// Render.
package stache
