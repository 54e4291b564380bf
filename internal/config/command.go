package config

// BuildWorkerCommand assembles the miner command line.
func BuildWorkerCommand(location, coin, pool, wallet, devices string) []string {
	return []string{
		location,
		"-a", coin,
		"-o", pool,
		"-u", wallet,
		"-p", "x",
		"--devices", devices,
	}
}
