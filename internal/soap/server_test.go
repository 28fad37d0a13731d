package soap

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/update-client-server-sync/internal/catalog"
	"github.com/microsoft/update-client-server-sync/internal/extended"
	"github.com/microsoft/update-client-server-sync/internal/metadata"
	"github.com/microsoft/update-client-server-sync/internal/wusync"
)

func TestSoapAction_ExtractsBareOperation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ClientWebService/client.asmx", nil)
	req.Header.Set("SOAPAction", `"http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService/SyncUpdates"`)

	assert.Equal(t, "SyncUpdates", soapAction(req))
}

func TestSoapAction_UnquotedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ClientWebService/client.asmx", nil)
	req.Header.Set("SOAPAction", "http://example/GetConfig")

	assert.Equal(t, "GetConfig", soapAction(req))
}

type stubFragmenter struct{}

func (stubFragmenter) CoreFragment(snap *catalog.Snapshot, id catalog.Identity) (string, error) {
	return "<Update/>", nil
}

func TestHandleSyncUpdates_EmptyCatalogReturnsEmptyReply(t *testing.T) {
	guard := catalog.NewGuard()
	guard.SetCatalog(catalog.NewMemorySource())
	engine := wusync.NewEngine(guard, catalog.NewApprovals(), stubFragmenter{}, nil)
	responder := extended.NewResponder(guard, metadata.New(0), "", nil)
	server := NewServer(engine, responder, slog.Default())

	body := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <SyncUpdates><parameters><SkipSoftwareSync>false</SkipSoftwareSync></parameters></SyncUpdates>
  </soap:Body>
</soap:Envelope>`

	req := httptest.NewRequest(http.MethodPost, "/ClientWebService/client.asmx", strings.NewReader(body))
	req.Header.Set("SOAPAction", `"http://.../SyncUpdates"`)
	rr := httptest.NewRecorder()

	server.handleClientAction(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "SyncUpdatesResponse")
}

func TestHandleClientAction_NotImplementedOpsFault(t *testing.T) {
	guard := catalog.NewGuard()
	guard.SetCatalog(catalog.NewMemorySource())
	engine := wusync.NewEngine(guard, catalog.NewApprovals(), stubFragmenter{}, nil)
	responder := extended.NewResponder(guard, metadata.New(0), "", nil)
	server := NewServer(engine, responder, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/ClientWebService/client.asmx", strings.NewReader(""))
	req.Header.Set("SOAPAction", `"http://.../RefreshCache"`)
	rr := httptest.NewRecorder()

	server.handleClientAction(rr, req)

	assert.Contains(t, rr.Body.String(), "Fault")
}

func TestHandleStub_AcceptsAnythingReturnsBenignEnvelope(t *testing.T) {
	server := NewServer(nil, nil, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/SimpleAuthWebService/SimpleAuth.asmx", strings.NewReader("garbage"))
	rr := httptest.NewRecorder()

	server.handleStub(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "soap:Envelope")
}
