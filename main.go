// Footfall aggregates footfall counts and corrects anomalous days.
package main

import (
	"github.com/huangsam/footfall/cmd"
	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)
	defer iocache.CloseStores()

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	if err != nil {
		iocache.CloseStores()
		contract.LogFatal("Command failed", err)
	}
}
