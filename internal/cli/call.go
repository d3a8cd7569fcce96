package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func cmdCall() *cobra.Command {
	var label, token, method, path, data string

	c := &cobra.Command{
		Use:   "call",
		Short: "Call the API with a bearer token",
		Example: "taskmarket call --label alice --method PUT --path /my-tasks/665f1c2e9b1d4a0012345678 " +
			"-d '{\"title\":\"New title\"}'",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" && label != "" {
				t, err := loadToken(label)
				if err != nil {
					return fmt.Errorf("load token %q: %w", label, err)
				}
				token = t
			}
			var body []byte
			if data != "" {
				if strings.HasPrefix(data, "@") {
					b, err := os.ReadFile(data[1:])
					if err != nil {
						return err
					}
					body = b
				} else {
					body = []byte(data)
				}
			}
			headers := map[string]string{"Accept": "application/json"}
			if token != "" {
				headers["Authorization"] = "Bearer " + token
			}
			resp, code, err := httpDoJSON(cmd.Context(), strings.ToUpper(method), joinURL(baseURL, path), body, headers)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "HTTP %d\n", code)
			return printJSON(out, resp)
		},
	}
	c.Flags().StringVar(&label, "label", "", "saved token label (see token mint --save)")
	c.Flags().StringVar(&token, "token", "", "token value (overrides --label)")
	c.Flags().StringVar(&method, "method", "GET", "HTTP method")
	c.Flags().StringVar(&path, "path", "/tasks", "request path, e.g. /my-tasks")
	c.Flags().StringVarP(&data, "data", "d", "", "request body. Use @file.json to read from file")
	return c
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
