/*
Package cli provides shared helpers for the arbiter command.

It carries the typed errors the subcommands return (configuration failures,
command failures), output formatting for the inspection subcommands, and
shutdown signal handling for the server run loop.

Output Formatting:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Signal Handling:

	select {
	case err := <-errChan:
		return err
	case <-cli.WaitForShutdown():
		// begin graceful shutdown
	}
*/
package cli
