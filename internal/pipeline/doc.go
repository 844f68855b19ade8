// Package pipeline runs one document generation end to end.
//
// # Phases
//
// [Controller.GenerateDocument] sequences the stages of a run:
//
//	research → planning → slides → writing → images → review → done
//
// Research, slides and images are soft stages: their failures are logged,
// recorded as skipped in the bundle metadata, and the run continues.
// Planning and writing are fatal: their errors are returned to the caller
// as-is and no bundle is produced. Phase transitions and agent progress are
// published on the controller's [event.Bus].
//
// # Run State
//
// Every call creates its own run id and usage tracker, so concurrent runs on
// one Controller never share totals.
//
// # Usage
//
//	c, _ := pipeline.NewController(pipeline.Config{
//	    Text:     client,
//	    Searcher: unsplash,
//	    PoolSize: 3,
//	})
//	bundle, err := c.GenerateDocument(ctx, brief, sink)
package pipeline
