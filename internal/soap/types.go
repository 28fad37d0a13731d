package soap

import "encoding/xml"

// syncUpdatesRequest is the wire shape of the SyncUpdates operation.
type syncUpdatesRequest struct {
	XMLName xml.Name   `xml:"SyncUpdates"`
	Cookie  wireCookie `xml:"cookie"`
	Parameters struct {
		ExpressQuery              bool    `xml:"ExpressQuery"`
		InstalledNonLeafUpdateIDs []int32 `xml:"InstalledNonLeafUpdateIDs>int"`
		OtherCachedUpdateIDs      []int32 `xml:"OtherCachedUpdateIDs>int"`
		SkipSoftwareSync          bool    `xml:"SkipSoftwareSync"`
	} `xml:"parameters"`
}

type wireCookie struct {
	Expiration    string `xml:"Expiration"`
	EncryptedData string `xml:"EncryptedData"`
}

type wireDeployment struct {
	Action               string `xml:"Action"`
	ID                   int32  `xml:"ID"`
	AutoDownload         string `xml:"AutoDownload"`
	AutoSelect           string `xml:"AutoSelect"`
	SupersedenceBehavior string `xml:"SupersedenceBehavior"`
	IsAssigned           bool   `xml:"IsAssigned"`
	LastChangeTime       string `xml:"LastChangeTime"`
}

type wireUpdateInfo struct {
	ID           int32          `xml:"ID"`
	IsLeaf       bool           `xml:"IsLeaf"`
	IsShared     bool           `xml:"IsShared"`
	Xml          string         `xml:"Xml"`
	Deployment   wireDeployment `xml:"Deployment"`
	Verification *string        `xml:"Verification"`
}

type syncUpdatesResponse struct {
	XMLName             xml.Name         `xml:"SyncUpdatesResponse"`
	NewCookie           wireCookie       `xml:"SyncUpdatesResult>NewCookie"`
	DriverSyncNotNeeded bool             `xml:"SyncUpdatesResult>DriverSyncNotNeeded"`
	Truncated           bool             `xml:"SyncUpdatesResult>Truncated"`
	NewUpdates          []wireUpdateInfo `xml:"SyncUpdatesResult>NewUpdates>UpdateInfo"`
}

type getExtendedUpdateInfoRequest struct {
	XMLName     xml.Name   `xml:"GetExtendedUpdateInfo"`
	Cookie      wireCookie `xml:"cookie"`
	RevisionIDs []int32    `xml:"revisionIDs>int"`
	InfoTypes   []string   `xml:"infoTypes>XmlUpdateFragmentType"`
	Locales     []string   `xml:"locales>string"`
}

type wireUpdateData struct {
	ID  int32  `xml:"ID"`
	Xml string `xml:"Xml"`
}

type wireFileLocation struct {
	FileDigest string `xml:"FileDigest"`
	Url        string `xml:"Url"`
}

type getExtendedUpdateInfoResponse struct {
	XMLName       xml.Name           `xml:"GetExtendedUpdateInfoResponse"`
	Updates       []wireUpdateData   `xml:"GetExtendedUpdateInfoResult>Updates>UpdateData"`
	FileLocations []wireFileLocation `xml:"GetExtendedUpdateInfoResult>FileLocations>FileLocation"`
}

type getCookieRequest struct {
	XMLName         xml.Name   `xml:"GetCookie"`
	OldCookie       wireCookie `xml:"oldCookie"`
	LastChange      string     `xml:"lastChange"`
	CurrentTime     string     `xml:"currentTime"`
	ProtocolVersion string     `xml:"protocolVersion"`
}

type getCookieResponse struct {
	XMLName xml.Name   `xml:"GetCookieResponse"`
	Result  wireCookie `xml:"GetCookieResult"`
}

type wireAuthPlugIn struct {
	PlugInID   string `xml:"PlugInId"`
	ServiceUrl string `xml:"ServiceUrl"`
	Parameter  string `xml:"Parameter"`
}

type getConfigRequest struct {
	XMLName         xml.Name `xml:"GetConfig"`
	ProtocolVersion string   `xml:"protocolVersion"`
}

type getConfigResponse struct {
	XMLName                xml.Name         `xml:"GetConfigResponse"`
	LastChange             string           `xml:"GetConfigResult>LastChange"`
	IsRegistrationRequired bool             `xml:"GetConfigResult>IsRegistrationRequired"`
	AuthPlugIns            []wireAuthPlugIn `xml:"GetConfigResult>AuthPlugInConfigXML>AuthPlugInInfo"`
	PropertyBag            string           `xml:"GetConfigResult>PropertyBag"`
}
