package plan

// Class is an independently metered AI cost tier.
type Class string

const (
	// ClassMini is the low-cost model tier (gpt-5-mini deployments).
	ClassMini Class = "mini"

	// ClassGPT4 is the high-cost model tier (gpt-4.1 deployments).
	ClassGPT4 Class = "gpt41"
)

// RouteClasses maps a route pattern to the AI classes its handler
// consumes, in the order they must be checked. An explicit table rather
// than prefix matching keeps the mapping testable and unambiguous.
type RouteClasses map[string][]Class

// DefaultRouteClasses returns the built-in route table. The combined
// enquiry endpoint consumes both tiers (mini for query planning, gpt4
// for answering) and checks mini first.
func DefaultRouteClasses() RouteClasses {
	return RouteClasses{
		"/ai/extract":   {ClassMini},
		"/ai/classify":  {ClassMini},
		"/ai/summarize": {ClassGPT4},
		"/ai/compare":   {ClassGPT4},
		"/ai/rewrite":   {ClassGPT4},
		"/ai/qna":       {ClassGPT4},
		"/enquire":      {ClassMini, ClassGPT4},
	}
}

// For returns the classes required by a route, or nil when the route is
// not metered (pass through unconditionally).
func (rc RouteClasses) For(route string) []Class {
	return rc[route]
}
