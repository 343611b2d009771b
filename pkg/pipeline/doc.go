// Package pipeline provides a pipeline for processing streams of data.
//
// A pipeline is a series of steps connected by channels. Each step performs a specific
// operation on the elements it receives and passes the result to the next step, so every
// step runs concurrently with the others and a step can itself run several goroutines.
//
// Steps are started as soon as they are added. Run waits for all of them: the first error
// cancels the pipeline context, the remaining steps wind down, and the error is returned
// wrapped with the name of the step that failed.
//
// Pipeline options (see the model package) observe the pipeline as it is built and run.
// The measure and drawer packages use them to time each step and draw the pipeline graph.
package pipeline
