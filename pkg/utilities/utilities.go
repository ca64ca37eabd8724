package utilities

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	DefaultDiceSides = 6
	MaxDiceSides     = 1000
	WeatherCacheTTL  = 10 * time.Minute
)

var (
	ErrNoAPIKey = errors.New("weather api key not configured")
	ErrNotFound = errors.New("not found")
)

// RollDice rolls a die with the given number of sides. Values below 2 fall
// back to six sides and values above MaxDiceSides are capped.
func RollDice(sides int) (result, used int) {
	switch {
	case sides < 2:
		sides = DefaultDiceSides
	case sides > MaxDiceSides:
		sides = MaxDiceSides
	}
	return rand.IntN(sides) + 1, sides
}

func FlipCoin() string {
	if rand.IntN(2) == 0 {
		return "Heads"
	}
	return "Tails"
}

// Now formats the current time in the named IANA zone, or local time when
// tz is empty.
func Now(tz string) (string, error) {
	loc := time.Local
	if tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return "", fmt.Errorf("unknown time zone %q", tz)
		}
	}
	return time.Now().In(loc).Format("Mon Jan 2, 03:04 PM MST"), nil
}

type Endpoints struct {
	Weather string
	Fact    string
	Joke    string
	CatFact string
}

var DefaultEndpoints = Endpoints{
	Weather: "https://api.openweathermap.org/data/2.5/weather",
	Fact:    "https://uselessfacts.jsph.pl/random.json?language=en",
	Joke:    "https://official-joke-api.appspot.com/random_joke",
	CatFact: "https://catfact.ninja/fact",
}

type Weather struct {
	City        string
	Temp        float64
	FeelsLike   float64
	Humidity    int64
	Description string
}

type Joke struct {
	Setup     string
	Punchline string
}

// Client fetches content from the public APIs behind the fun commands.
type Client struct {
	weatherKey string
	endpoints  Endpoints
	http       *http.Client
	weather    *expirable.LRU[string, Weather]
}

func NewClient(weatherKey string, endpoints Endpoints, httpClient *http.Client) *Client {
	if endpoints == (Endpoints{}) {
		endpoints = DefaultEndpoints
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		weatherKey: weatherKey,
		endpoints:  endpoints,
		http:       httpClient,
		weather:    expirable.NewLRU[string, Weather](128, nil, WeatherCacheTTL),
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return gjson.Result{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.New("invalid json response")
	}
	return gjson.ParseBytes(body), nil
}

// Weather returns current conditions for city in metric units.
func (c *Client) Weather(ctx context.Context, city string) (Weather, error) {
	if c.weatherKey == "" {
		return Weather{}, ErrNoAPIKey
	}
	city = strings.TrimSpace(city)
	key := strings.ToLower(city)
	if w, ok := c.weather.Get(key); ok {
		return w, nil
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.weatherKey)
	params.Set("units", "metric")
	doc, err := c.getJSON(ctx, c.endpoints.Weather+"?"+params.Encode())
	if err != nil {
		return Weather{}, fmt.Errorf("weather for %s: %w", city, err)
	}

	w := Weather{
		City:        doc.Get("name").String(),
		Temp:        doc.Get("main.temp").Float(),
		FeelsLike:   doc.Get("main.feels_like").Float(),
		Humidity:    doc.Get("main.humidity").Int(),
		Description: doc.Get("weather.0.description").String(),
	}
	if w.City == "" {
		w.City = city
	}
	c.weather.Add(key, w)
	log.Debug().Str("component", "utilities").Str("city", w.City).Float64("temp", w.Temp).Msg("weather fetched")
	return w, nil
}

func (c *Client) RandomFact(ctx context.Context) (string, error) {
	doc, err := c.getJSON(ctx, c.endpoints.Fact)
	if err != nil {
		return "", fmt.Errorf("random fact: %w", err)
	}
	return nonEmpty(doc.Get("text").String(), "random fact")
}

func (c *Client) RandomJoke(ctx context.Context) (Joke, error) {
	doc, err := c.getJSON(ctx, c.endpoints.Joke)
	if err != nil {
		return Joke{}, fmt.Errorf("random joke: %w", err)
	}
	j := Joke{Setup: doc.Get("setup").String(), Punchline: doc.Get("punchline").String()}
	if j.Setup == "" {
		return Joke{}, errors.New("random joke: empty response")
	}
	return j, nil
}

func (c *Client) CatFact(ctx context.Context) (string, error) {
	doc, err := c.getJSON(ctx, c.endpoints.CatFact)
	if err != nil {
		return "", fmt.Errorf("cat fact: %w", err)
	}
	return nonEmpty(doc.Get("fact").String(), "cat fact")
}

func nonEmpty(s, what string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%s: empty response", what)
	}
	return s, nil
}
