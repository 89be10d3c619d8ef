package authhttp

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// cookieFile keeps the service's session cookies between processes.
type cookieFile struct {
	path string
	url  *url.URL
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// load copies saved cookies into jar. A missing file is an empty session.
func (f cookieFile) load(jar http.CookieJar) error {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		return err
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	jar.SetCookies(f.url, cookies)
	return nil
}

// save writes the cookies jar holds for the service, removing the file once
// the service has cleared them.
func (f cookieFile) save(jar http.CookieJar) error {
	cookies := jar.Cookies(f.url)
	if len(cookies) == 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	saved := make([]savedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
