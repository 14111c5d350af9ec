package web

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/pict"
	"github.com/rsrcutils/rsrcbrowser/resource"
	"github.com/rsrcutils/rsrcbrowser/rle"
	"github.com/rsrcutils/rsrcbrowser/status"
	"github.com/rsrcutils/rsrcbrowser/template"
	"github.com/rsrcutils/rsrcbrowser/webutils"
)

var templateType = resource.TypeFromString("TMPL")

func requestedResource(r *http.Request) (*resource.Resource, error) {
	vars := mux.Vars(r)
	t := resource.TypeFromString(vars["type"])
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		return nil, errors.Wrapf(err, "resource id %q", vars["id"])
	}
	res := serverFile.Resource(t, id)
	if res == nil {
		return nil, errors.Errorf("no resource %v %d", t, id)
	}
	return res, nil
}

type resourceMeta struct {
	Type       resource.TypeCode `json:"type"`
	ID         int               `json:"id"`
	Name       string            `json:"name,omitempty"`
	Attributes string            `json:"attributes,omitempty"`
	Size       int               `json:"size"`
}

func metaOf(res *resource.Resource) resourceMeta {
	return resourceMeta{
		Type:       res.Type,
		ID:         res.ID,
		Name:       res.Name,
		Attributes: res.Attributes.String(),
		Size:       len(res.Data),
	}
}

func HandlerFileInfo(w http.ResponseWriter, r *http.Request) {
	serverLock.Lock()
	defer serverLock.Unlock()

	type typeInfo struct {
		Type  resource.TypeCode `json:"type"`
		Count int               `json:"count"`
	}
	var types []typeInfo
	for _, t := range serverFile.TypesSorted() {
		types = append(types, typeInfo{Type: t, Count: len(serverFile.ResourcesOfType(t))})
	}
	webutils.WriteJson(w, struct {
		Path   string     `json:"path"`
		Format string     `json:"format"`
		Count  int        `json:"count"`
		Types  []typeInfo `json:"types"`
	}{serverPath, serverFile.Format.String(), serverFile.Count(), types})
}

func HandlerListType(w http.ResponseWriter, r *http.Request) {
	serverLock.Lock()
	defer serverLock.Unlock()

	t := resource.TypeFromString(mux.Vars(r)["type"])
	list := serverFile.ResourcesOfType(t)
	metas := make([]resourceMeta, len(list))
	for i, res := range list {
		metas[i] = metaOf(res)
	}
	webutils.WriteJson(w, metas)
}

func HandlerResourceInfo(w http.ResponseWriter, r *http.Request) {
	serverLock.Lock()
	defer serverLock.Unlock()

	res, err := requestedResource(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, metaOf(res))
}

// templateFor finds the TMPL resource whose name matches the type code,
// the traditional convention for binding templates to resource types.
func templateFor(t resource.TypeCode) (*template.Template, error) {
	for _, res := range serverFile.ResourcesOfType(templateType) {
		if res.Name == t.String() {
			return template.Parse(res.Data)
		}
	}
	return nil, errors.Errorf("no template for type %v", t)
}

func HandlerResourceDecoded(w http.ResponseWriter, r *http.Request) {
	serverLock.Lock()
	defer serverLock.Unlock()

	res, err := requestedResource(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	tpl, err := templateFor(res.Type)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	rec, err := tpl.Decode(res.Data)
	if err != nil {
		// Show whatever decoded; the failure itself already went to the
		// status channel as context for the ui.
		status.Warning("web: decode %v %d: %v", res.Type, res.ID, err)
	}
	webutils.WriteJson(w, rec.Snapshot())
}

func HandlerResourceDump(w http.ResponseWriter, r *http.Request) {
	serverLock.Lock()
	defer serverLock.Unlock()

	res, err := requestedResource(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	name := fmt.Sprintf("%s_%d.bin", res.Type, res.ID)
	webutils.WriteFile(w, bytes.NewReader(res.Data), name)
}

func HandlerResourcePreview(w http.ResponseWriter, r *http.Request) {
	serverLock.Lock()
	defer serverLock.Unlock()

	res, err := requestedResource(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	switch res.Type.String() {
	case "PICT":
		img, err := pict.Decode(res.Data)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WritePng(w, img)
	case "rlëD":
		sprite, err := rle.Decode(res.Data)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		if len(sprite.Frames) == 0 {
			webutils.WriteError(w, errors.New("sprite has no frames"))
			return
		}
		webutils.WritePng(w, sprite.Frames[0])
	default:
		webutils.WriteError(w, errors.Errorf("no preview for type %v", res.Type))
	}
}

func HandlerResourceUpload(w http.ResponseWriter, r *http.Request) {
	serverLock.Lock()
	defer serverLock.Unlock()

	res, err := requestedResource(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	data, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	res.Data = data
	status.Info("web: replaced %v %d with %d bytes", res.Type, res.ID, len(data))
	webutils.WriteJson(w, metaOf(res))
}

func HandlerSave(w http.ResponseWriter, r *http.Request) {
	serverLock.Lock()
	defer serverLock.Unlock()

	data, err := serverFile.Write()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if err := ioutil.WriteFile(serverPath, data, 0644); err != nil {
		webutils.WriteError(w, errors.Wrap(err, "save"))
		return
	}
	status.Info("web: saved %q (%d bytes)", serverPath, len(data))
	webutils.WriteJson(w, struct {
		Saved int `json:"saved"`
	}{len(data)})
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerStatusWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	status.NewClient(conn)
}
