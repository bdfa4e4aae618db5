/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: ptrs.go
Description: Pointer search command. Looks for absolute or relative pointers leading
to one offset of a file.
*/

package commands

import (
	"fmt"
	"os"

	"github.com/kleascm/bytesleuth/pkg/layout"
	"github.com/kleascm/bytesleuth/pkg/ptrs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunPtrs executes the pointer search
func RunPtrs(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("could not find %s. Did you forget the quotes?", path)
	}

	format, err := layout.ParseFormat(viper.GetString("ptrs.format"))
	if err != nil {
		return err
	}
	opts := ptrs.Options{
		Format:   format,
		DataAt:   viper.GetInt64("ptrs.data_at"),
		From:     viper.GetInt64("ptrs.from"),
		To:       viper.GetInt64("ptrs.to"),
		Jitter:   viper.GetInt64("ptrs.jitter"),
		Relative: viper.GetBool("ptrs.relative"),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	printStep("Searching in " + path + "...")
	matches, err := ptrs.Search(data, opts)
	for _, m := range matches {
		fmt.Println(m.String())
	}
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		printWarning("No pointers found.")
	}
	return nil
}
