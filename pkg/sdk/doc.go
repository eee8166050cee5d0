// Package attachments turns files and URLs into content that language models can consume.
//
// Identifiers name a local path or an http(s) URL and may carry inline
// directives that steer processing:
//
//	report.csv[limit:20][format:markdown]
//	https://example.com/post[select:article]
//	photos.zip[tile:3x2]
//
// # Simple API
//
// Process runs every identifier through the automatic pipeline (load, modify,
// split, present, refine) and returns the combined result:
//
//	client, _ := attachments.New(ctx)
//	defer client.Close()
//
//	a, _ := client.Process(ctx, "notes.md", "chart.png")
//	fmt.Println(a.Text())
//	msgs, _ := a.OpenAI("Summarize these files")
//
// # Pipelines
//
// Pipeline builds an explicit composition of verbs. "|" runs steps in
// sequence, "+" runs them on the same input and merges the output:
//
//	p, _ := client.Pipeline("load.csv | modify.limit | present.markdown + present.metadata")
//	a, _ := p.Run(ctx, "data.csv[limit:5]")
//
// # Fetch cache
//
// WithRedis or WithValkey caches fetched URLs so repeated runs skip the network.
package attachments
