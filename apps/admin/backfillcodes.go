package main

import (
	"context"
	"fmt"
)

// backfillCodes issues a share code to every course that does not have one yet.
func (cli *commandLine) backfillCodes() error {
	ctx := context.Background()

	courses, err := cli.crsSvc.QueryMissingShareCode(ctx)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		fmt.Println("all courses already have a share code")
		return nil
	}

	var done int
	for _, crs := range courses {
		code, err := cli.crsSvc.EnsureShareCode(ctx, crs.ID)
		if err != nil {
			return fmt.Errorf("issuing code for course %q: %w", crs.Title, err)
		}
		fmt.Printf("%s: %s\n", crs.Title, code)
		done++
	}
	fmt.Printf("issued %d share code(s)\n", done)
	return nil
}
