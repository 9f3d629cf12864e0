package model

// Source is a community feed that ideas are harvested from.
type Source struct {
	Name     string // community name, e.g. "r/startups"
	URL      string // RSS feed URL
	Category string // category assigned to harvested ideas
}

// DefaultSources are the communities harvested by `ideas seed`.
var DefaultSources = []Source{
	{Name: "r/smallbusiness", URL: "https://www.reddit.com/r/smallbusiness/.rss", Category: "other"},
	{Name: "r/startups", URL: "https://www.reddit.com/r/startups/.rss", Category: "tech"},
	{Name: "r/growmybusiness", URL: "https://www.reddit.com/r/growmybusiness/.rss", Category: "other"},
}
