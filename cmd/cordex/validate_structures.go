// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/clarinsi/cordex/internal/structure"
)

// NewValidateStructuresCmd creates the validate-structures subcommand,
// which compiles a structure file and reports any error without running
// a pipeline.
func NewValidateStructuresCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "validate-structures",
		Short: "Compile a structure file and report any error",
		Long: `Validate-structures loads a structure definitions file the same way
run does, without ingesting a corpus, so a structure author can check a
file before a full pipeline run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				return oops.Code("CONFIG_INCONSISTENT").Errorf("--structures is required")
			}
			lib, err := structure.LoadFile(path, nil)
			if err != nil {
				return err
			}
			cmd.Printf("%s: %d structure(s) compiled, system_type=%v grammar_version=%d\n",
				path, len(lib.Structures), lib.SystemType, lib.GrammarVersion)
			for _, s := range lib.Structures {
				core := "none"
				if s.CoreA != nil && s.CoreB != nil {
					core = s.CoreA.Idx + "/" + s.CoreB.Idx
				}
				cmd.Printf("  %s: %d component(s), core=%s\n", s.ID, len(s.Index), core)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "structures", "", "path to the structure definitions file")
	return cmd
}
