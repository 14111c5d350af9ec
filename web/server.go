// Package web serves an inspection ui over a loaded resource file:
// json listings of types and resources, template-driven field views,
// raw dumps, image previews and a status event websocket.
package web

import (
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/rsrcutils/rsrcbrowser/resource"
	"github.com/rsrcutils/rsrcbrowser/status"
)

var (
	serverLock sync.Mutex
	serverFile *resource.File
	serverPath string
)

// StartServer serves f until the listener fails. Handlers mutate the file
// under serverLock; saving writes back to path.
func StartServer(addr string, f *resource.File, path string) error {
	serverFile = f
	serverPath = path

	r := mux.NewRouter()
	r.HandleFunc("/json/file", HandlerFileInfo)
	r.HandleFunc("/json/type/{type}", HandlerListType)
	r.HandleFunc("/json/resource/{type}/{id}", HandlerResourceInfo)
	r.HandleFunc("/json/resource/{type}/{id}/decoded", HandlerResourceDecoded)
	r.HandleFunc("/dump/resource/{type}/{id}", HandlerResourceDump)
	r.HandleFunc("/png/resource/{type}/{id}", HandlerResourcePreview)
	r.HandleFunc("/upload/resource/{type}/{id}", HandlerResourceUpload).Methods("POST")
	r.HandleFunc("/action/save", HandlerSave).Methods("POST")
	r.HandleFunc("/ws/status", HandlerStatusWebsocket)

	h := handlers.LoggingHandler(os.Stdout, handlers.RecoveryHandler()(r))

	status.Info("web: serving %q on %v", path, addr)
	return http.ListenAndServe(addr, h)
}
