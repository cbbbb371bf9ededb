// Command capnpc-go is the plugin entrypoint for the schema compiler
// (spec.md §4.4): it reads a CodeGeneratorRequest message from stdin, as
// the `capnp compile` front end invokes any `capnpc-*` plugin, and
// writes one generated Go source file per requested schema file next to
// the plugin's working directory.
//
// This is the thin process wrapper around the in-scope schema compiler
// (internal/gen); the `decode`/`compile` CLI verbs themselves, and
// schema-file-from-disk loading for that CLI, are out of scope per
// spec.md §1 and remain external collaborators.
package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/tools/imports"

	"github.com/capnweave/capnp"
	"github.com/capnweave/capnp/internal/gen"
	"github.com/capnweave/capnp/internal/schema"
)

func main() {
	dumpRequest := flag.String("dump-request", "", "write the raw CodeGeneratorRequest bytes to this path for debugging, then proceed normally")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: colorable.NewColorable(os.Stderr), NoColor: !isatty(os.Stderr)}).
		With().Timestamp().Str("component", "capnpc-go").Logger()

	if err := run(os.Stdin, *dumpRequest, logger); err != nil {
		logger.Error().Err(err).Msg("generation failed")
		os.Exit(1)
	}
}

func run(r io.Reader, dumpRequestPath string, logger zerolog.Logger) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading CodeGeneratorRequest from stdin")
	}
	if dumpRequestPath != "" {
		if err := os.WriteFile(dumpRequestPath, raw, 0o644); err != nil {
			logger.Warn().Err(err).Str("path", dumpRequestPath).Msg("failed to write -dump-request file")
		}
	}

	msg, err := capnp.Unmarshal(raw)
	if err != nil {
		return errors.Wrap(err, "unmarshaling CodeGeneratorRequest")
	}
	req, err := schema.DecodeRequest(msg)
	if err != nil {
		return errors.Wrap(err, "decoding CodeGeneratorRequest")
	}
	logger.Debug().Int("nodes", len(req.Nodes)).Int("files", len(req.RequestedFiles)).Msg("decoded request")

	results, err := gen.Generate(req)
	if err != nil {
		return errors.Wrap(err, "generating accessors")
	}

	for _, res := range results {
		dir := filepath.Dir(res.Filename)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.Wrapf(err, "creating output directory %s", dir)
			}
		}
		formatted, err := imports.Process(res.Filename, []byte(res.Source), nil)
		if err != nil {
			// The generator's own output is malformed Go; fall back to
			// writing the raw source so the failure is inspectable
			// instead of silently discarded.
			logger.Warn().Err(err).Str("file", res.Filename).Msg("goimports formatting failed, writing unformatted source")
			formatted = []byte(res.Source)
		}
		if err := os.WriteFile(res.Filename, formatted, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", res.Filename)
		}
		logger.Info().Str("file", res.Filename).Msg("wrote generated accessors")
	}
	return nil
}

func isatty(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
