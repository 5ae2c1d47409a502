// Command wcat is the concatenation driver spec.md §6 describes: it reads
// one or more input streams and writes them, in order, to a single output
// stream, optionally compressing the output with one of the library's
// codecs.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/wandio-go/wandio"
)

var codecNames = map[string]wandio.Codec{
	"none":  wandio.CodecNone,
	"gzip":  wandio.CodecZlib,
	"bzip2": wandio.CodecBzip2,
	"lzma":  wandio.CodecLZMA,
	"zstd":  wandio.CodecZstd,
	"lz4":   wandio.CodecLZ4,
	// lzo is part of the codec-name vocabulary but is not compiled into
	// this library; run warns and writes uncompressed output for it.
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("wcat", pflag.ContinueOnError)
	codecName := fs.StringP("compress-type", "Z", "none", "output compression codec (gzip|bzip2|lzo|lzma|zstd|lz4)")
	level := fs.IntP("compress-level", "z", 0, "compression level (0..9)")
	output := fs.StringP("output", "o", "-", "output file (default stdout)")
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: wcat [-Z codec] [-z level] [-o output] input [input ...]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return len(args)
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		fs.Usage()
		return 0
	}

	codec, ok := codecNames[*codecName]
	if !ok && *codecName == "lzo" {
		fmt.Fprintf(os.Stderr, "wcat: codec lzo not compiled in, writing uncompressed\n")
		codec, ok = wandio.CodecNone, true
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "wcat: unknown codec %q\n", *codecName)
		return len(inputs)
	}

	out, err := wandio.Create(*output, codec, *level, wandio.FlagTruncate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wcat: cannot open output %q: %v\n", *output, err)
		return len(inputs)
	}
	defer out.Close()

	failed := 0
	buf := make([]byte, 1<<20)
	for _, name := range inputs {
		if err := concat(name, out, buf); err != nil {
			fmt.Fprintf(os.Stderr, "wcat: %s: %v\n", name, err)
			failed++
		}
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "wcat: closing output: %v\n", err)
	}
	return failed
}

// concat streams name's full contents to out, the canonical read/write
// loop spec.md §4.1 describes ("short reads are legal at every layer and
// the caller is expected to loop").
func concat(name string, out *wandio.WStream, buf []byte) error {
	in, err := wandio.Open(name, wandio.OpenOptions{})
	if err != nil {
		return err
	}
	defer in.Close()

	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
