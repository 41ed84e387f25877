package youtube

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MinScore is the score a candidate has to beat to be accepted
const MinScore = 50

var (
	nonAlnumRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	durationRegex = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)
	channelRegex  = regexp.MustCompile(`(?i)karaoke|sing|backing|instrumental`)
)

// titleBonuses rewards titles that advertise a vocal-free version
var titleBonuses = []struct {
	pattern *regexp.Regexp
	score   int
}{
	{regexp.MustCompile(`(?i)karaoke`), 100},
	{regexp.MustCompile(`(?i)instrumental`), 90},
	{regexp.MustCompile(`(?i)backing track`), 85},
	{regexp.MustCompile(`(?i)sing along`), 80},
	{regexp.MustCompile(`(?i)no vocals`), 75},
	{regexp.MustCompile(`(?i)lyrics`), 60},
	{regexp.MustCompile(`(?i)cover`), 40},
}

func normalize(s string) string {
	return strings.TrimSpace(nonAlnumRegex.ReplaceAllString(strings.ToLower(s), ""))
}

// Queries returns the search strategies to try, most specific first
func Queries(trackName, artistName string) []string {
	track := strings.TrimSpace(trackName)
	artist := strings.TrimSpace(artistName)

	if artist == "" {
		return []string{
			fmt.Sprintf(`"%s" karaoke`, track),
			fmt.Sprintf(`%s karaoke lyrics`, track),
			fmt.Sprintf(`"%s" karaoke instrumental`, track),
			fmt.Sprintf(`%s instrumental`, track),
			fmt.Sprintf(`%s karaoke backing track`, track),
			fmt.Sprintf(`"%s" sing along`, track),
			fmt.Sprintf(`%s no vocals`, track),
		}
	}

	return []string{
		fmt.Sprintf(`"%s" "%s" karaoke`, track, artist),
		fmt.Sprintf(`%s %s karaoke lyrics`, track, artist),
		fmt.Sprintf(`"%s" karaoke instrumental`, track),
		fmt.Sprintf(`%s %s instrumental`, track, artist),
		fmt.Sprintf(`%s karaoke backing track`, track),
		fmt.Sprintf(`"%s" sing along`, track),
		fmt.Sprintf(`%s %s karaoke`, track, artist),
		fmt.Sprintf(`%s no vocals`, track),
	}
}

// titleMatchesTrack requires at least half of the track's significant words in the title
func titleMatchesTrack(normalizedTitle, normalizedTrack string) bool {
	var words []string
	for _, w := range strings.Fields(normalizedTrack) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	// Titles made only of short words ("Up", "Go") match on all of them
	if len(words) == 0 {
		words = strings.Fields(normalizedTrack)
	}
	if len(words) == 0 {
		return false
	}

	matched := 0
	for _, w := range words {
		if strings.Contains(normalizedTitle, w) {
			matched++
		}
	}
	return float64(matched) >= float64(len(words))*0.5
}

// Score rates how likely a video is a karaoke version of the track.
// ok is false when the title does not match the track or the score is too low.
func Score(videoTitle, channelTitle, trackName, artistName string) (score int, ok bool) {
	title := normalize(videoTitle)
	channel := normalize(channelTitle)
	track := normalize(trackName)
	artist := normalize(artistName)

	if !titleMatchesTrack(title, track) {
		return 0, false
	}

	for _, bonus := range titleBonuses {
		if bonus.pattern.MatchString(videoTitle) {
			score += bonus.score
		}
	}

	// Original artist uploads
	if strings.Contains(title, "official") || strings.Contains(title, "music video") {
		score -= 50
	}
	if strings.Contains(title, "live") || strings.Contains(title, "concert") {
		score -= 40
	}
	if artist != "" && strings.Contains(channel, artist) {
		score -= 30
	}

	if channelRegex.MatchString(channelTitle) {
		score += 30
	}
	if strings.Contains(title, track) {
		score += 20
	}

	return score, score > MinScore
}

// ParseDuration converts an ISO 8601 duration such as PT1H2M3S to seconds.
// Unrecognised input yields 0.
func ParseDuration(duration string) int {
	m := durationRegex.FindStringSubmatch(strings.TrimSpace(duration))
	if m == nil {
		return 0
	}

	total := 0
	for i, unit := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}
