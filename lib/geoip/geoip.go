package geoip

import (
	"net"
	"os"
	"strings"

	geoip2 "github.com/oschwald/geoip2-golang"
	log "github.com/sirupsen/logrus"
)

var db *geoip2.Reader

// Init opens the geolite db. Lookups degrade to "" when the db is missing.
func Init() {
	dbPath := os.Getenv("GEOIP_DB_PATH")
	if dbPath == "" {
		dbPath = "/opt/sentrylink/assets/GeoLite2-Country.mmdb"
	}
	mmdb, err := geoip2.Open(dbPath)
	if err != nil {
		log.Errorf("failed to open geoip db: %s", err.Error())
	} else {
		log.Infof("success to open geoip db: %s", dbPath)
		db = mmdb
	}
}

// GetIpIsoCode resolves an ip (optionally with a :port suffix) to its ISO
// country code.
func GetIpIsoCode(ipStr string) (ISOCode string) {
	if db == nil {
		return ""
	}
	ipParts := strings.Split(ipStr, ":")
	ip := net.ParseIP(ipParts[0])
	if ip == nil {
		return ""
	}
	record, err := db.Country(ip)
	if err != nil {
		log.Errorf("%s", err.Error())
		return ""
	}
	return record.Country.IsoCode
}
