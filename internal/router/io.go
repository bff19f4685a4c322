package router

import (
	"fmt"
	"os"
)

// writeOut writes content to args[0] if given, otherwise to stdout,
// matching the optional trailing "[file]" argument write_def/write_delays/
// write_failed all accept.
func writeOut(args []string, content string) error {
	if len(args) == 0 {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(args[0], []byte(content), 0o644)
}
