package main

import (
	"github.com/vistream/vistream/app"
	"github.com/vistream/vistream/vision"

	_ "github.com/vistream/vistream/detect/yolo"

	sio "github.com/zishang520/socket.io/v2/socket"

	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
)

func main() {
	addr := flag.String("addr", ":8080", "bind address")
	dataDir := flag.String("data-dir", "data", "directory for the database and item files")
	detectorOp := flag.String("detector", "yolov3", "detector op to run")
	detectorParams := flag.String("detector-params", "", "detector params (JSON)")
	poolSize := flag.Int("pool", 1, "number of detector processes")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	vision.SeedRand()

	app.Config.DataDir = *dataDir
	app.Config.DetectorOp = *detectorOp
	app.Config.DetectorParams = *detectorParams
	app.Config.PoolSize = *poolSize

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		panic(err)
	}
	vision.ItemDir = filepath.Join(*dataDir, "items")

	app.InitDB()
	if err := app.InitDetectors(); err != nil {
		panic(err)
	}
	defer app.CloseDetectors()

	server := sio.NewServer(nil, nil)
	server.On("connection", func(clients ...any) {
		client := clients[0].(*sio.Socket)
		for _, f := range app.SetupFuncs {
			f(client)
		}
	})
	defer server.Close(nil)
	http.Handle("/socket.io/", server.ServeHandler(nil))
	http.Handle("/", app.Router)
	log.Printf("starting on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		panic(err)
	}
}
