package parse

import (
	"bufio"
	"io"

	"github.com/cognicore/justify/pkg/justify/kb"
)

// Write renders items one per line in source syntax, so Read returns them.
func Write(w io.Writer, items []kb.Item) error {
	bw := bufio.NewWriter(w)
	for _, it := range items {
		bw.WriteString(it.Kind().String())
		bw.WriteString(": ")
		bw.WriteString(it.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
