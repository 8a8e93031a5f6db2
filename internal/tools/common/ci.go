package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type ciResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// PrintCIResult writes one machine-readable JSON line to stdout.
func PrintCIResult(ok bool, title string, details []string, err error) {
	writeCIResult(os.Stdout, ok, title, details, err)
}

func writeCIResult(w io.Writer, ok bool, title string, details []string, err error) {
	res := ciResult{OK: ok, Title: title, Details: details}
	if err != nil {
		res.Error = err.Error()
	}
	raw, mErr := json.Marshal(res)
	if mErr != nil {
		_, _ = fmt.Fprintf(w, `{"ok":false,"title":%q,"error":%q}`+"\n", title, mErr.Error())
		return
	}
	_, _ = fmt.Fprintln(w, string(raw))
}
