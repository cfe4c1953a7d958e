package tts

// Voices lists the speaker identifiers the synthesis backend accepts.
var Voices = []string{
	// English
	"en_au_001", // English AU - Female
	"en_au_002", // English AU - Male
	"en_uk_001", // English UK - Male 1
	"en_uk_003", // English UK - Male 2
	"en_us_001", // English US - Female 1
	"en_us_002", // English US - Female 2
	"en_us_006", // English US - Male 1
	"en_us_007", // English US - Male 2
	"en_us_009", // English US - Male 3
	"en_us_010", // English US - Male 4
	// Europe
	"fr_001", // French - Male 1
	"fr_002", // French - Male 2
	"de_001", // German - Female
	"de_002", // German - Male
	"es_002", // Spanish - Male
	// Americas
	"es_mx_002", // Spanish MX - Male
	"br_001",    // Portuguese BR - Female 1
	"br_003",    // Portuguese BR - Female 2
	"br_004",    // Portuguese BR - Female 3
	"br_005",    // Portuguese BR - Male
	// Asia
	"id_001", // Indonesian - Female
	"jp_001", // Japanese - Female 1
	"jp_003", // Japanese - Female 2
	"jp_005", // Japanese - Female 3
	"jp_006", // Japanese - Male
	"kr_002", // Korean - Male 1
	"kr_003", // Korean - Female
	"kr_004", // Korean - Male 2
	// Characters
	"en_us_ghostface",
	"en_us_chewbacca",
	"en_us_c3po",
	"en_us_stitch",
	"en_us_stormtrooper",
	"en_us_rocket",
	"en_male_narration",
	"en_male_funny",
	"en_female_emotional",
}

// DefaultVoice is used when a job does not request a specific speaker.
const DefaultVoice = "en_us_001"

var voiceSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Voices))
	for _, voice := range Voices {
		set[voice] = struct{}{}
	}
	return set
}()

// KnownVoice reports whether the backend recognizes the speaker identifier.
func KnownVoice(voice string) bool {
	_, ok := voiceSet[voice]
	return ok
}
