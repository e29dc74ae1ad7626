// tmc-monitor watches the driver reports of a TMC2660 board and dry-runs
// board configurations through the driver core.
package main

import (
	"log"
)

func main() {
	log.SetFlags(0)
	if err := Execute(); err != nil {
		log.Fatal(err)
	}
}
