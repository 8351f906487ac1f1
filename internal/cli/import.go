package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/agentcore/internal/memory"
	"github.com/rcliao/agentcore/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import memories from JSON",
		Long: "Import long-term memories from a file or stdin. Accepts the object produced by export or a bare " +
			"array of memories. Ids already present are skipped.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	mems, err := decodeImport(data)
	if err != nil {
		exitErr("parse json", err)
	}

	rt, stop := openRuntime(cmd)
	defer stop()

	imported, err := rt.Memory().Import(cmd.Context(), mems)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d,"skipped":%d}`+"\n", imported, len(mems)-imported)
}

func decodeImport(data []byte) ([]model.LongTermMemory, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var mems []model.LongTermMemory
		if err := json.Unmarshal(data, &mems); err != nil {
			return nil, err
		}
		return mems, nil
	}
	var exp memory.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, err
	}
	return exp.Memories, nil
}
