// Processo CLI — инструмент командной строки для управления
// шаблонами процессов, экземплярами, шагами и подписями через HTTP API.
//
// Использование:
//
//	processo [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	type      Управление шаблонами процессов
//	instance  Управление экземплярами
//	step      Выполнение шагов, вложения и подписи
//	child     Дочерние процессы
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Processo/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "processo",
		Short:         "Processo CLI — business process engine tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTypeCmd(clientFn, outputFn),
		cli.NewInstanceCmd(clientFn, outputFn),
		cli.NewStepCmd(clientFn, outputFn),
		cli.NewChildCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
