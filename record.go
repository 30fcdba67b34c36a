package ipquery

// Record is the information known about an IP address.
// The layout follows the JSON returned by api.ipquery.io.
// A Record failing its validation tags is never passed to a Store.
type Record struct {
	IP       string   `json:"ip" validate:"required,ip"`
	ISP      ISP      `json:"isp"`
	Location Location `json:"location"`
	Risk     Risk     `json:"risk"`
}

type ISP struct {
	ASN string `json:"asn"`
	Org string `json:"org"`
	ISP string `json:"isp"`
}

type Location struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Zipcode     string  `json:"zipcode"`
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Timezone    string  `json:"timezone"`
	Localtime   string  `json:"localtime"`
}

type Risk struct {
	IsMobile     bool `json:"is_mobile"`
	IsVPN        bool `json:"is_vpn"`
	IsTor        bool `json:"is_tor"`
	IsProxy      bool `json:"is_proxy"`
	IsDatacenter bool `json:"is_datacenter"`
	RiskScore    int  `json:"risk_score" validate:"gte=0,lte=100"`
}
