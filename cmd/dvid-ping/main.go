// Check that a DVID server is reachable and report its version.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/janelia-flyem/libdvid-go/client"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	configFile = flag.String("config", "", "")

	uuid = flag.String("uuid", "", "")
)

const helpMessage = `

dvid-ping checks that a DVID server is up and prints its version.

Usage: dvid-ping [options] <dvid server url>

  Example server URL: http://emdata2.int.janelia.org:7000

  -config  =string  (optional) TOML config file; its server setting is
                    used when no URL argument is given
  -uuid    =string  (optional) also verify this version node exists
  -h, -help (flag)  Show help message
`

var usage = func() {
	fmt.Printf(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	var config *client.Config
	if *configFile != "" {
		var err error
		config, err = client.LoadConfig(*configFile)
		if err != nil {
			fmt.Printf("error reading config %q: %v\n", *configFile, err)
			os.Exit(1)
		}
	} else {
		config = &client.Config{}
	}
	if flag.NArg() >= 1 {
		config.Server = flag.Arg(0)
	}
	if *uuid != "" {
		config.UUID = *uuid
	}
	if config.Server == "" {
		flag.Usage()
		os.Exit(0)
	}

	conn := client.NewConnection(config.Server, config.Timeout())
	server := client.NewServerService(conn)

	version, err := server.Version()
	if err != nil {
		fmt.Printf("error contacting %q: %v\n", config.Server, err)
		os.Exit(1)
	}
	fmt.Printf("DVID server %s is up, version %s\n", config.Server, version)

	if config.UUID != "" {
		if _, err := client.NewNodeService(conn, config.UUID); err != nil {
			fmt.Printf("error checking version node %q: %v\n", config.UUID, err)
			os.Exit(1)
		}
		fmt.Printf("Version node %s is available\n", config.UUID)
	}
}
