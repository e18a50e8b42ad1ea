// Package middleware содержит HTTP middleware для обработки запросов.
// Включает идентификацию по JWT, логирование, сжатие ответов и проверку доверенных подсетей.
package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/tempizhere/shortlink/internal/models"
	"go.uber.org/zap"
)

// RealIPHeader заголовок с адресом клиента, выставляемый прокси
const RealIPHeader = "X-Real-IP"

// Subnet доверенная подсеть. Пустая подсеть запрещает доступ всем.
type Subnet struct {
	network *net.IPNet
}

// ParseSubnet разбирает CIDR; пустая строка даёт подсеть, запрещающую всё
func ParseSubnet(cidr string) (*Subnet, error) {
	if cidr == "" {
		return &Subnet{}, nil
	}
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted subnet %q: %w", cidr, err)
	}
	return &Subnet{network: network}, nil
}

// Allows проверяет, входит ли адрес в подсеть
func (s *Subnet) Allows(clientIP string) bool {
	if s == nil || s.network == nil {
		return false
	}
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false
	}
	return s.network.Contains(ip)
}

// String возвращает CIDR подсети
func (s *Subnet) String() string {
	if s == nil || s.network == nil {
		return ""
	}
	return s.network.String()
}

// TrustedSubnetMiddleware пропускает только запросы с X-Real-IP из доверенной подсети
func TrustedSubnetMiddleware(subnet *Subnet, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := r.Header.Get(RealIPHeader)
			if !subnet.Allows(clientIP) {
				logger.Warn("Access denied: IP not in trusted subnet",
					zap.String("method", r.Method),
					zap.String("uri", r.RequestURI),
					zap.String("client_ip", clientIP),
					zap.String("trusted_subnet", subnet.String()),
					zap.String("remote_addr", r.RemoteAddr))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Access denied"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
