package prayer

// apiResponse models the top-level structure of the Aladhan API's response.
type apiResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings map[string]string `json:"timings"`
	} `json:"data"`
}

// timingKeys maps each event to its key in the API's timings object.
var timingKeys = map[Event]string{
	Fajr:    "Fajr",
	Dhuhr:   "Dhuhr",
	Asr:     "Asr",
	Maghrib: "Maghrib",
	Isha:    "Isha",
}
