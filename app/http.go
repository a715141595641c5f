package app

import (
	"github.com/vistream/vistream/vision"

	"net/http"

	"github.com/gorilla/mux"
	sio "github.com/zishang520/socket.io/v2/socket"
)

// SetupFuncs are called for every new socket.io connection to register its
// event handlers.
var SetupFuncs []func(*sio.Socket)
var Router = mux.NewRouter()

func init() {
	fileServer := http.FileServer(http.Dir("static/"))
	Router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fileServer))
	Router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fileServer.ServeHTTP(w, r)
	})

	Router.HandleFunc("/data-types", func(w http.ResponseWriter, r *http.Request) {
		vision.JsonResponse(w, vision.DataTypes)
	}).Methods("GET")
}
