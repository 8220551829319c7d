// Command wasp builds a weighted-average surface-reflectance composite
// from a time series of atmospherically corrected acquisitions.
package main

import "os"

func main() {
	os.Exit(Execute())
}
