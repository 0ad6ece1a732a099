// threadtree reads an mbox file (or standard input) and prints the reply
// forest reconstructed from it, one message per line. Rows linked by real
// reference evidence are shown in [brackets], rows adopted by the subject
// grouping heuristic in <angle brackets>.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/emersion/go-mbox"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"git.sr.ht/~rjarry/threadtree/lib/log"
	"git.sr.ht/~rjarry/threadtree/lib/threads"
	"git.sr.ht/~rjarry/threadtree/models"
)

func usage() {
	fmt.Println("Usage: threadtree [-hve] <mbox-file|->")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h   show this help message")
	fmt.Println("  -v   log engine diagnostics to stderr")
	fmt.Println("  -e   also group subject-less messages into one thread")
}

func main() {
	var verbose, groupEmpty bool

	opts, optind, err := getopt.Getopts(os.Args, "hve")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(1)
	}
	for _, opt := range opts {
		switch opt.Option {
		case 'h':
			usage()
			return
		case 'v':
			verbose = true
		case 'e':
			groupEmpty = true
		}
	}
	args := os.Args[optind:]
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}

	if verbose {
		log.Init(os.Stderr, log.TRACE)
	}

	f := os.Stdin
	if args[0] != "-" {
		f, err = os.Open(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
	}

	tuples, err := readMbox(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", args[0], err)
		os.Exit(1)
	}

	state := threads.NewState()
	state.GroupEmptySubject = groupEmpty
	for _, root := range state.Thread(tuples) {
		render(state, root)
	}
}

func readMbox(r io.Reader) ([]threads.Tuple, error) {
	mr := mbox.NewReader(r)
	var tuples []threads.Tuple
	for row := 1; ; row++ {
		msg, err := mr.NextMessage()
		if err == io.EOF {
			break
		} else if err != nil {
			return tuples, err
		}
		h, err := mail.CreateReader(msg)
		if err != nil {
			log.Warnf("row %d: unparseable message: %s", row, err)
			continue
		}
		subject, _ := h.Header.Subject()
		tuples = append(tuples, threads.Tuple{
			Row:        row,
			MessageID:  h.Header.Get("Message-Id"),
			References: h.Header.Get("References"),
			InReplyTo:  h.Header.Get("In-Reply-To"),
			Subject:    subject,
		})
	}
	return tuples, nil
}

func render(state *threads.State, root *models.Container) {
	_ = root.Walk(func(c *models.Container, level int) error {
		indent := strings.Repeat("  ", level)
		label := "?"
		if row, ok := state.Row(c); ok {
			label = strconv.Itoa(row)
		}
		var subject string
		if c.Message != nil {
			subject = *c.Message.Subject
		}
		if c.RealEdge {
			fmt.Printf("%s[%s] %s\n", indent, label, subject)
		} else {
			fmt.Printf("%s<%s> %s\n", indent, label, subject)
		}
		// raw rows sharing this message's id, indented identically
		for _, dup := range state.DuplicateRows(c) {
			fmt.Printf("%s[%d] %s (duplicate)\n", indent, dup, subject)
		}
		return nil
	})
}
