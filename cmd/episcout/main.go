// Command episcout はニュースフィードから感染症関連記事を収集するサーバーとワーカーを起動する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/episcout/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "episcout: %v\n", err)
		os.Exit(1)
	}
}
