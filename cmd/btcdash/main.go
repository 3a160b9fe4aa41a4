// Command btcdash はOTPログイン付きのビットコイン価格ダッシュボードを起動する。
//
// Usage:
//
//	btcdash [serve|migrate|cleanup|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/btcdash/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "btcdash: %v\n", err)
		os.Exit(1)
	}
}
