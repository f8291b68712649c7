package main

import (
	"log"
	"net/http"

	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/mnehpets/tinyrpc/middleware"
	"github.com/mnehpets/tinyrpc/rpchttp"
)

// led is the state of a pretend output pin.
var led bool

func setLED(params jsonrpc.Value, resp jsonrpc.Object) {
	var on bool
	if !jsonrpc.PositionalParam(params, resp, 0, &on) {
		return
	}
	led = on
	resp.SetBool("result", led)
}

func readTemp(_ jsonrpc.Value, resp jsonrpc.Object) {
	resp.SetFloat("result", 21.5)
}

func main() {
	reg := jsonrpc.NewRegistry(4)
	if err := reg.RegisterFunc("led.set", setLED); err != nil {
		log.Fatal(err)
	}
	if err := reg.RegisterFunc("temp.read", readTemp); err != nil {
		log.Fatal(err)
	}

	srv := rpchttp.NewServer(jsonrpc.NewDispatcher(reg))
	http.Handle("/rpc", srv.Handler(middleware.NewAPIHeadersProcessor()))

	log.Println("Starting server on :8080")
	log.Fatal(http.ListenAndServe(":8080", nil))
}
