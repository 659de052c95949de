package source

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var _ HeadlineSource = (*MockSource)(nil)

var mockHeadlines = []Headline{
	{
		Title:       "AI-Generated Content Detection Reaches New Milestone",
		Description: "Researchers develop advanced algorithms capable of identifying synthetic media with 99.2% accuracy, marking a significant breakthrough in combating misinformation.",
		URL:         "https://example.com/ai-detection-milestone",
		ImageURL:    "https://images.pexels.com/photos/8386440/pexels-photo-8386440.jpeg?auto=compress&cs=tinysrgb&w=800",
		Content:     "Advanced AI detection systems are revolutionizing how we identify manipulated content across digital platforms.",
	},
	{
		Title:       "Social Media Platforms Implement Real-Time Fact Checking",
		Description: "Major social networks roll out automated fact-checking systems powered by machine learning to combat the spread of false information.",
		URL:         "https://example.com/social-media-fact-check",
		ImageURL:    "https://images.pexels.com/photos/267399/pexels-photo-267399.jpeg?auto=compress&cs=tinysrgb&w=800",
		Content:     "Real-time verification systems are being deployed across major social media platforms to enhance information integrity.",
	},
	{
		Title:       "Government Agencies Adopt Advanced Media Verification Tools",
		Description: "Federal departments implement cutting-edge image and text verification systems to ensure the authenticity of official communications.",
		URL:         "https://example.com/government-verification-tools",
		ImageURL:    "https://images.pexels.com/photos/8728382/pexels-photo-8728382.jpeg?auto=compress&cs=tinysrgb&w=800",
		Content:     "Government agencies are leading the adoption of sophisticated verification technologies to maintain public trust.",
	},
	{
		Title:       "Deepfake Detection Technology Shows Promise in Early Trials",
		Description: "New neural network architectures demonstrate exceptional capability in identifying sophisticated deepfake videos and images.",
		URL:         "https://example.com/deepfake-detection-trials",
		ImageURL:    "https://images.pexels.com/photos/518543/pexels-photo-518543.jpeg?auto=compress&cs=tinysrgb&w=800",
		Content:     "Breakthrough deepfake detection algorithms are showing unprecedented accuracy in identifying synthetic media content.",
	},
	{
		Title:       "Educational Institutions Launch Media Literacy Programs",
		Description: "Universities and schools introduce comprehensive curricula focused on digital media verification and critical thinking skills.",
		URL:         "https://example.com/media-literacy-programs",
		ImageURL:    "https://images.pexels.com/photos/159844/cellular-education-classroom-159844.jpeg?auto=compress&cs=tinysrgb&w=800",
		Content:     "Educational institutions are prioritizing media literacy to prepare students for the digital information age.",
	},
}

// MockSource generates a fixed set of headlines with titles prefixed by the
// upper-cased sector and publish times spread over the last 24 hours.
type MockSource struct {
	now    func() time.Time
	jitter func() float64
}

func NewMockSource() *MockSource {
	return &MockSource{now: time.Now, jitter: rand.Float64}
}

func (s *MockSource) Name() string {
	return "mock"
}

func (s *MockSource) Headlines(_ context.Context, sector string) ([]Headline, error) {
	prefix := "[" + cases.Upper(language.Und).String(sector) + "] "
	now := s.now().UTC()

	headlines := make([]Headline, len(mockHeadlines))
	for i, headline := range mockHeadlines {
		published := now.Add(-time.Duration(s.jitter() * float64(24*time.Hour)))
		headline.Title = prefix + headline.Title
		headline.PublishedAt = &published
		headline.SourceName = "Veritas Demo"
		headlines[i] = headline
	}

	return headlines, nil
}
