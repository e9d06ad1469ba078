package main

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"storefront-base/pkg/backend"
	"storefront-base/pkg/cache"
	"storefront-base/pkg/config"
	"storefront-base/pkg/imagesearch"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	catalogCache, err := cache.New(cfg.Cache.DBPath, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer catalogCache.Close()

	log.Printf("Cache initialized at %s with TTL %d minutes", cfg.Cache.DBPath, cfg.Cache.TTLMinutes)

	resolver := imagesearch.NewResolver()
	if os.Getenv("HEADLESS_IMAGE_RESOLVER") == "1" {
		resolver.Headless = true
	}

	srv := newServer(cfg, backend.New(cfg.Backend.BaseURL), catalogCache, resolver)

	ip := GetOutboundIP()
	if ip != nil {
		fmt.Printf("Local Network URL: http://%s%s\n", ip.String(), cfg.Server.ListenAddr)
	} else {
		fmt.Println("Could not determine local IP address.")
	}
	fmt.Printf("Access URL: http://localhost%s\n", cfg.Server.ListenAddr)
	fmt.Printf("API Docs: http://localhost%s/docs\n", cfg.Server.ListenAddr)

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}

func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}
