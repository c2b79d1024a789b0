// Command robotctl is a small HTTP client for the gateway, for humans
// driving the robot by hand and for integration tests that want to
// exercise the same surface an agent would (SPEC_FULL.md §4.K).
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

const defaultTimeout = 5 * time.Second

var (
	addr    = flag.String("addr", "http://localhost:8080", "Gateway base URL")
	leaseID = flag.String("lease-id", "", "Lease token for mutating commands (X-Lease-Id)")
	holder  = flag.String("holder", "robotctl", "Holder name used by 'lease acquire'")
)

func main() {
	flag.Usage = showUsage
	flag.Parse()

	if flag.NArg() < 1 {
		showUsage()
		os.Exit(1)
	}

	group := flag.Arg(0)
	args := flag.Args()[1:]

	client := &httpClient{base: *addr, leaseID: *leaseID}

	var err error
	switch group {
	case "lease":
		err = runLease(client, args)
	case "state":
		err = runGet(client, "/state")
	case "health":
		err = runGet(client, "/health")
	case "services":
		err = runServices(client, args)
	case "help":
		showUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", group)
		showUsage()
		os.Exit(1)
	}
	if err != nil {
		exitWithError("robotctl", err)
	}
}

func runLease(client *httpClient, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("lease requires a subcommand: acquire|release|status")
	}
	switch args[0] {
	case "acquire":
		return client.postJSON("/lease/acquire", map[string]string{"holder": *holder})
	case "release":
		if *leaseID == "" {
			return fmt.Errorf("-lease-id is required for lease release")
		}
		return client.postJSON("/lease/release", map[string]string{"lease_id": *leaseID})
	case "status":
		return client.get("/lease/status")
	default:
		return fmt.Errorf("unknown lease subcommand: %s", args[0])
	}
}

func runServices(client *httpClient, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("services requires a subcommand: list|start|stop|restart|logs")
	}
	switch args[0] {
	case "list":
		return client.get("/services")
	case "start", "stop", "restart":
		if len(args) < 2 {
			return fmt.Errorf("services %s requires a service key", args[0])
		}
		return client.postJSON(fmt.Sprintf("/services/%s/%s", args[1], args[0]), nil)
	case "logs":
		if len(args) < 2 {
			return fmt.Errorf("services logs requires a service key")
		}
		n := 100
		if len(args) > 2 {
			if parsed, err := strconv.Atoi(args[2]); err == nil {
				n = parsed
			}
		}
		return client.get(fmt.Sprintf("/services/%s/logs?lines=%d", args[1], n))
	default:
		return fmt.Errorf("unknown services subcommand: %s", args[0])
	}
}

func runGet(client *httpClient, path string) error {
	return client.get(path)
}

// httpClient is a thin wrapper that attaches the lease header and
// pretty-prints whatever JSON the gateway returns.
type httpClient struct {
	base    string
	leaseID string
}

func (c *httpClient) get(path string) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req)
}

func (c *httpClient) postJSON(path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *httpClient) do(req *http.Request) error {
	if c.leaseID != "" {
		req.Header.Set("X-Lease-Id", c.leaseID)
	}
	client := &http.Client{Timeout: defaultTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "%s\n", data)
		return fmt.Errorf("gateway returned %s", resp.Status)
	}
	return printPretty(data)
}

func printPretty(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		fmt.Println(string(data))
		return nil
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

func showUsage() {
	fmt.Println("robotctl — operator CLI for the robogate gateway")
	fmt.Println("\nUsage:")
	fmt.Println("  robotctl [global-options] <command> [args]")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  -addr string      Gateway base URL (default \"http://localhost:8080\")")
	fmt.Println("  -lease-id string  Lease token for mutating commands")
	fmt.Println("  -holder string    Holder name used by 'lease acquire' (default \"robotctl\")")
	fmt.Println("\nCommands:")
	fmt.Println("  lease acquire|release|status")
	fmt.Println("  state")
	fmt.Println("  health")
	fmt.Println("  services list|start <key>|stop <key>|restart <key>|logs <key> [n]")
	fmt.Println("  help")
	fmt.Println("\nExamples:")
	fmt.Println("  robotctl lease acquire")
	fmt.Println("  robotctl -lease-id abc123 lease release")
	fmt.Println("  robotctl services logs franka_server 200")
}

func exitWithError(message string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", message, err)
	os.Exit(1)
}
