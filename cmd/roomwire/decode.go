package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/frudas24/roomwire/internal/protocol"
	"github.com/spf13/cobra"
)

const maxFrameBytes = 4 << 20

// newDecodeCmd builds the offline frame checker.
func newDecodeCmd() *cobra.Command {
	var legacy bool
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode newline-delimited frames and print them re-encoded",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			codec := protocol.NewCodec(protocol.WithLegacyCandidateType(legacy))
			total, failed, err := decodeFrames(codec, in, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d frames failed to decode", failed, total)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&legacy, "legacy-candidate-type", false, "read candidate type only when tcpType is present")
	return cmd
}

// decodeFrames decodes one frame per non-empty line. Each frame is written
// back re-encoded, or as "line N: error".
func decodeFrames(codec *protocol.Codec, r io.Reader, w io.Writer) (total, failed int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrameBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		total++
		env, decodeErr := codec.Decode(raw)
		if decodeErr == nil {
			var out []byte
			out, decodeErr = codec.Encode(env)
			if decodeErr == nil {
				if _, err := fmt.Fprintf(w, "%s\n", out); err != nil {
					return total, failed, err
				}
				continue
			}
		}
		failed++
		if _, err := fmt.Fprintf(w, "line %d: %v\n", line, decodeErr); err != nil {
			return total, failed, err
		}
	}
	return total, failed, scanner.Err()
}
