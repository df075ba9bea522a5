// Command warehouse-planner serves and simulates the warehouse step planner.
package main

import (
	"os"

	"github.com/elektrokombinacija/warehouse-planner/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
