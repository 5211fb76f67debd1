// xlogsend is a load and smoke-test client for xlogd: it opens one
// connection, optionally fires an echo probe, then sends a stream of JSON
// records at a bounded rate and verifies every acknowledgement.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	var (
		hp    = pflag.String("hp", "127.0.0.1:12321", "host:port of the xlogd server")
		srcid = pflag.String("srcid", "test", "source id (_id, 4 chars)")
		subid = pflag.String("subid", "0000", "sub id (_si, 4 chars)")
		el    = pflag.Int("el", 2, "error level (_el, 0..5)")
		sl    = pflag.String("sl", "_", "sub level (_sl, 1 char)")
		count = pflag.Int("count", 10, "number of records to send")
		rate  = pflag.Duration("rate", 0, "minimum time between transmissions")
		probe = pflag.Bool("probe", false, "send an echo probe before the records")
		stop  = pflag.Bool("stop", false, "send !STOP! after the records")
	)
	pflag.Parse()

	conn, err := net.Dial("tcp", *hp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *hp, err)
		os.Exit(1)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	send := func(line string) string {
		if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			os.Exit(1)
		}
		reply, err := r.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "no reply: %v\n", err)
			os.Exit(1)
		}
		return strings.TrimRight(reply, "\n")
	}

	if *probe {
		reply := send("!probe!")
		if reply != "OK|!probe!" {
			fmt.Fprintf(os.Stderr, "probe reply: %q\n", reply)
			os.Exit(1)
		}
		fmt.Println("probe ok")
	}

	start := time.Now()
	errs := 0
	for i := 0; i < *count; i++ {
		next := time.Now().Add(*rate)
		line := fmt.Sprintf(
			`{"_id": "%s", "_si": "%s", "_el": %d, "_sl": "%s", "_ts": "%.4f", "_msg": "test message %d of %d"}`,
			*srcid, *subid, *el, *sl, float64(time.Now().UnixNano())/1e9, i+1, *count)
		if reply := send(line); reply != "OK" {
			fmt.Fprintf(os.Stderr, "record %d rejected: %s\n", i+1, reply)
			errs++
		}
		if d := time.Until(next); d > 0 {
			time.Sleep(d)
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("sent %d records in %s (%d rejected)\n", *count, elapsed.Round(time.Millisecond), errs)

	if *stop {
		fmt.Printf("stop reply: %s\n", send("!STOP!"))
	}
	if errs > 0 {
		os.Exit(1)
	}
}
