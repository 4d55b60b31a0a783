package stepflow_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/averho/stepflow"
)

// Example_workflowBuilder demonstrates defining and running a simple
// pipeline using the high-level builder API.
func Example_workflowBuilder() {
	ctx := context.Background()

	wf := stepflow.New("greeting").
		Node(stepflow.ContentStep("greet", func(ctx context.Context, content string) (string, error) {
			return "hello " + content, nil
		})).
		Node(stepflow.ContentStep("shout", func(ctx context.Context, content string) (string, error) {
			return strings.ToUpper(content) + "!", nil
		})).
		Build()

	resp, err := wf.Run(ctx, "gopher")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(resp.Content)
	fmt.Println(resp.Status)
	// Output:
	// HELLO GOPHER!
	// completed
}

// Example_streaming demonstrates consuming a run as a stream of
// outputs.
func Example_streaming() {
	ctx := context.Background()

	wf := stepflow.New("stream").
		Node(stepflow.ContentStep("first", func(ctx context.Context, content string) (string, error) {
			return content + " -> first", nil
		})).
		Node(stepflow.ContentStep("second", func(ctx context.Context, content string) (string, error) {
			return content + " -> second", nil
		})).
		Build()

	for item := range wf.RunStream(ctx, "start") {
		if out, ok := item.(stepflow.StepOutput); ok {
			fmt.Println(out.StepName, "=", out.Content)
		}
	}
	// Output:
	// first = start -> first
	// second = start -> first -> second
}
