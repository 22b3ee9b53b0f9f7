package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"ScriptPilot/sdk/go/scriptpilot"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "ScriptPilot API base URL")
	platform := flag.String("platform", "bash", "Target platform for the demo script")
	flag.Parse()

	client, err := scriptpilot.NewClient(*addr, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply, err := client.SendMessage(ctx, scriptpilot.MessageRequest{Text: "What can you automate for me?"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("assistant: %s\n", reply.Message)

	job, err := client.SubmitJob(ctx, "", scriptpilot.MessageRequest{
		Text:     "write a script that lists the ten largest files in my home directory",
		Platform: *platform,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("submitted job %s\n", job.ID)

	done, err := client.WaitForJob(ctx, job.ID, time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if done.Result == nil || done.Result.Automation == nil {
		fmt.Printf("job %s finished with status %s: %s\n", done.ID, done.Status, done.LastError)
		return
	}
	fmt.Printf("# %s\n%s\n", done.Result.Automation.Filename, done.Result.Automation.Script)
}
