package common

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SubdomainMiddleware handles per-user subdomain routing.
// Converts username.astor.com requests to /u/username paths internally.
func SubdomainMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host

		// Remove port if present (for local development)
		if strings.Contains(host, ":") {
			host = strings.Split(host, ":")[0]
		}

		if strings.Contains(host, ".") {
			parts := strings.Split(host, ".")

			if len(parts) >= 2 {
				possibleUser := parts[0]
				domain := strings.Join(parts[1:], ".")

				if domain == "astor.com" || domain == "localhost" {
					// Skip www, account, api, mail, etc. - only handle user subdomains
					if possibleUser != "www" && possibleUser != "account" &&
						possibleUser != "api" && possibleUser != "mail" &&
						possibleUser != "ftp" && possibleUser != "smtp" {

						originalPath := c.Request.URL.Path
						c.Request.URL.Path = "/u/" + possibleUser + originalPath

						c.Set("username", possibleUser)
						c.Set("is_subdomain_request", true)
						c.Set("original_path", originalPath)
					}
				}
			}
		}

		c.Next()
	}
}
