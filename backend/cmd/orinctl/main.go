package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

// orinctl is a small command-line client for the mnemos HTTP API.
//
//	orinctl add-node <label> <type> [-meta '{"k":"v"}']
//	orinctl add-link <source> <target> <relation>
//	orinctl view
//	orinctl query <text>
//	orinctl status
//	orinctl save
//	orinctl load

func main() {
	_ = godotenv.Load()
	base := os.Getenv("MNEMOS_API")
	if base == "" {
		base = "http://localhost:8080"
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	client := &apiClient{base: base}
	var err error

	switch os.Args[1] {
	case "add-node":
		err = cmdAddNode(client, os.Args[2:])
	case "add-link":
		err = cmdAddLink(client, os.Args[2:])
	case "view":
		err = cmdView(client)
	case "query":
		err = cmdQuery(client, os.Args[2:])
	case "status":
		err = cmdStatus(client)
	case "save":
		err = cmdPostMessage(client, "/save", "Graph saved")
	case "load":
		err = cmdGetMessage(client, "/load", "Graph loaded")
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: orinctl <add-node|add-link|view|query|status|save|load> [args]")
}

type apiClient struct {
	base string
}

func (c *apiClient) do(method, path string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		if msg, ok := decoded["error"].(string); ok {
			return nil, fmt.Errorf("%s", msg)
		}
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	return decoded, nil
}

func cmdAddNode(client *apiClient, args []string) error {
	fs := flag.NewFlagSet("add-node", flag.ExitOnError)
	meta := fs.String("meta", "{}", "metadata JSON object")
	_ = fs.Parse(args)
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: orinctl add-node <label> <type> [-meta '{...}']")
	}

	var metaObj map[string]any
	if err := json.Unmarshal([]byte(*meta), &metaObj); err != nil {
		return fmt.Errorf("invalid -meta JSON: %w", err)
	}

	resp, err := client.do(http.MethodPost, "/node", map[string]any{
		"label": fs.Arg(0),
		"type":  fs.Arg(1),
		"meta":  metaObj,
	})
	if err != nil {
		return err
	}
	color.Green("Node created: %v", resp["id"])
	return nil
}

func cmdAddLink(client *apiClient, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: orinctl add-link <source> <target> <relation>")
	}
	_, err := client.do(http.MethodPost, "/link", map[string]any{
		"source":   args[0],
		"target":   args[1],
		"relation": args[2],
	})
	if err != nil {
		return err
	}
	color.Green("Link created: %s -> %s", args[0], args[1])
	return nil
}

func cmdView(client *apiClient) error {
	resp, err := client.do(http.MethodGet, "/graph", nil)
	if err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	color.Cyan("Memory Graph:")
	fmt.Println(string(pretty))
	return nil
}

func cmdQuery(client *apiClient, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: orinctl query <text>")
	}
	resp, err := client.do(http.MethodPost, "/api/query", map[string]any{
		"query": args[0],
	})
	if err != nil {
		return err
	}
	if answer, ok := resp["answer"].(string); ok {
		fmt.Println(answer)
	}
	if sources, ok := resp["sources"].([]any); ok && len(sources) > 0 {
		color.Cyan("Sources:")
		for _, s := range sources {
			if m, ok := s.(map[string]any); ok {
				fmt.Printf("- %v (%v)\n", m["label"], m["type"])
			}
		}
	}
	return nil
}

func cmdStatus(client *apiClient) error {
	resp, err := client.do(http.MethodGet, "/api/import-status", nil)
	if err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

func cmdPostMessage(client *apiClient, path, fallback string) error {
	resp, err := client.do(http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	printMessage(resp, fallback)
	return nil
}

func cmdGetMessage(client *apiClient, path, fallback string) error {
	resp, err := client.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	printMessage(resp, fallback)
	return nil
}

func printMessage(resp map[string]any, fallback string) {
	if msg, ok := resp["message"].(string); ok {
		color.Green("%s", msg)
		return
	}
	color.Green("%s", fallback)
}
