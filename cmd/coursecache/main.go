// Command coursecache inspects and maintains an on-disk course cache.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonwraymond/coursecache/internal/command"
	mylog "github.com/jonwraymond/coursecache/internal/log"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	if err := command.NewApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
