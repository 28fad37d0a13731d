package soap

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/microsoft/update-client-server-sync/internal/extended"
	"github.com/microsoft/update-client-server-sync/internal/wusync"
)

// Server answers the three upstream web services (§6).
type Server struct {
	engine    *wusync.Engine
	responder *extended.Responder
	log       *slog.Logger
}

// NewServer constructs a Server.
func NewServer(engine *wusync.Engine, responder *extended.Responder, log *slog.Logger) *Server {
	return &Server{engine: engine, responder: responder, log: log}
}

// RegisterRoutes wires the three SOAP endpoints onto r (§6).
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ClientWebService/client.asmx", s.handleClientAction).Methods(http.MethodPost)
	r.HandleFunc("/SimpleAuthWebService/SimpleAuth.asmx", s.handleStub).Methods(http.MethodPost)
	r.HandleFunc("/ReportingWebService/WebService.asmx", s.handleStub).Methods(http.MethodPost)
}

// handleClientAction dispatches on the SOAPAction header, the standard
// way a SOAP 1.1 client names the operation it's invoking.
func (s *Server) handleClientAction(w http.ResponseWriter, r *http.Request) {
	action := soapAction(r)
	switch action {
	case "SyncUpdates":
		s.handleSyncUpdates(w, r)
	case "GetExtendedUpdateInfo":
		s.handleGetExtendedUpdateInfo(w, r)
	case "GetCookie":
		s.handleGetCookie(w, r)
	case "GetConfig", "GetConfig2":
		s.handleGetConfig(w, r)
	case "GetExtendedUpdateInfo2", "GetFileLocations", "GetTimestamps",
		"RefreshCache", "RegisterComputer", "StartCategoryScan", "SyncPrinterCatalog":
		writeFault(w, "soap:Server", "operation not implemented: "+action)
	default:
		writeFault(w, "soap:Client", "unknown operation: "+action)
	}
}

// handleStub implements the SimpleAuthWebService and ReportingWebService
// endpoints, both stubbed per §1/§6: accept anything, reply benignly.
func (s *Server) handleStub(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xmlDeclAndEmptyEnvelope))
}

const xmlDeclAndEmptyEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body/></soap:Envelope>`

func (s *Server) handleSyncUpdates(w http.ResponseWriter, r *http.Request) {
	var req syncUpdatesRequest
	if err := decodeRequest(r, &req); err != nil {
		writeFault(w, "soap:Client", err.Error())
		return
	}

	params := wusync.Params{
		SkipSoftwareSync:          req.Parameters.SkipSoftwareSync,
		InstalledNonLeafUpdateIDs: req.Parameters.InstalledNonLeafUpdateIDs,
		OtherCachedUpdateIDs:      req.Parameters.OtherCachedUpdateIDs,
	}

	reply, err := s.engine.SyncUpdates(params)
	if err != nil {
		s.log.Warn("sync updates failed", "error", err)
		writeFault(w, "soap:Server", err.Error())
		return
	}

	resp := syncUpdatesResponse{
		NewCookie:           toWireCookie(reply.NewCookie.Expiration, reply.NewCookie.EncryptedData[:]),
		DriverSyncNotNeeded: reply.DriverSyncNotNeeded,
		Truncated:           reply.Truncated,
	}
	for _, u := range reply.NewUpdates {
		resp.NewUpdates = append(resp.NewUpdates, wireUpdateInfo{
			ID:       u.ID,
			IsLeaf:   u.IsLeaf,
			IsShared: u.IsShared,
			Xml:      u.Xml,
			Deployment: wireDeployment{
				Action:               u.Deployment.Action,
				ID:                   u.Deployment.ID,
				AutoDownload:         u.Deployment.AutoDownload,
				AutoSelect:           u.Deployment.AutoSelect,
				SupersedenceBehavior: u.Deployment.SupersedenceBehavior,
				IsAssigned:           u.Deployment.IsAssigned,
				LastChangeTime:       u.Deployment.LastChangeTime,
			},
		})
	}
	writeReply(w, resp)
}

func (s *Server) handleGetExtendedUpdateInfo(w http.ResponseWriter, r *http.Request) {
	var req getExtendedUpdateInfoRequest
	if err := decodeRequest(r, &req); err != nil {
		writeFault(w, "soap:Client", err.Error())
		return
	}

	info, err := s.responder.GetExtendedUpdateInfo(req.RevisionIDs, req.InfoTypes, req.Locales)
	if err != nil {
		writeFault(w, "soap:Server", err.Error())
		return
	}

	resp := getExtendedUpdateInfoResponse{}
	for _, u := range info.Updates {
		resp.Updates = append(resp.Updates, wireUpdateData{ID: u.ID, Xml: u.Xml})
	}
	for _, f := range info.FileLocations {
		resp.FileLocations = append(resp.FileLocations, wireFileLocation{
			FileDigest: base64.StdEncoding.EncodeToString(f.FileDigest),
			Url:        f.Url,
		})
	}
	writeReply(w, resp)
}

func (s *Server) handleGetCookie(w http.ResponseWriter, r *http.Request) {
	var req getCookieRequest
	if err := decodeRequest(r, &req); err != nil {
		writeFault(w, "soap:Client", err.Error())
		return
	}
	cookie := s.responder.GetCookie()
	writeReply(w, getCookieResponse{Result: toWireCookie(cookie.Expiration, cookie.EncryptedData[:])})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	var req getConfigRequest
	if err := decodeRequest(r, &req); err != nil {
		writeFault(w, "soap:Client", err.Error())
		return
	}
	cfg := s.responder.GetConfig()

	resp := getConfigResponse{
		LastChange:             cfg.LastChange.UTC().Format(time.RFC3339),
		IsRegistrationRequired: cfg.IsRegistrationRequired,
		PropertyBag:            string(cfg.Properties),
	}
	for _, p := range cfg.AuthPlugIns {
		resp.AuthPlugIns = append(resp.AuthPlugIns, wireAuthPlugIn{PlugInID: p.PlugInID, ServiceUrl: p.ServiceUrl, Parameter: p.Parameter})
	}
	writeReply(w, resp)
}

func toWireCookie(expiration time.Time, encrypted []byte) wireCookie {
	return wireCookie{
		Expiration:    expiration.UTC().Format(time.RFC3339),
		EncryptedData: base64.StdEncoding.EncodeToString(encrypted),
	}
}

// soapAction extracts the bare operation name from the SOAPAction
// header, which carries the fully-qualified action URI.
func soapAction(r *http.Request) string {
	action := r.Header.Get("SOAPAction")
	action = trimQuotes(action)
	for i := len(action) - 1; i >= 0; i-- {
		if action[i] == '/' {
			return action[i+1:]
		}
	}
	return action
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
