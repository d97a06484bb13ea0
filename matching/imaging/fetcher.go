package imaging

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// Fetcher загружает изображения листингов по URL.
// Запросы к поставщикам ограничены по частоте, чтобы прогон
// сопоставления не выглядел как атака на их сайты.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher создает новый загрузчик изображений
func NewFetcher(timeout time.Duration, requestsPerSecond float64) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// FetchImage загружает и декодирует изображение по ссылке.
// Если ссылка ведет на HTML-страницу листинга, из нее извлекается
// ссылка на основное изображение (og:image либо первый <img>).
func (f *Fetcher) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("пустая ссылка на изображение")
	}

	body, contentType, err := f.get(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if strings.Contains(contentType, "text/html") {
		imageURL, err := extractImageURL(body, ref)
		if err != nil {
			return nil, err
		}

		imgBody, _, err := f.get(ctx, imageURL)
		if err != nil {
			return nil, err
		}
		defer imgBody.Close()

		img, _, err := image.Decode(imgBody)
		if err != nil {
			return nil, fmt.Errorf("не удалось декодировать изображение %s: %w", imageURL, err)
		}
		return img, nil
	}

	img, _, err := image.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("не удалось декодировать изображение %s: %w", ref, err)
	}
	return img, nil
}

// get выполняет GET-запрос с учетом ограничителя частоты
func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("некорректный URL %s: %w", rawURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("не удалось загрузить %s: %w", rawURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("загрузка %s: статус %d", rawURL, resp.StatusCode)
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// extractImageURL извлекает ссылку на основное изображение из HTML-страницы.
// Сначала ищется мета-тег og:image, затем первый <img> с атрибутом src.
func extractImageURL(body io.Reader, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("не удалось разобрать HTML страницы %s: %w", pageURL, err)
	}

	if content, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && content != "" {
		return resolveURL(pageURL, content)
	}

	if src, ok := doc.Find("img[src]").First().Attr("src"); ok && src != "" {
		return resolveURL(pageURL, src)
	}

	return "", fmt.Errorf("на странице %s не найдено изображение", pageURL)
}

// resolveURL разрешает относительную ссылку относительно страницы
func resolveURL(pageURL, ref string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return "", err
	}
	return resolved.String(), nil
}
