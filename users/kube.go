package users

import (
	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// NewClientset builds a cluster API client from an explicit kubeconfig, an
// API server URL, or the in-cluster service account when both are empty.
func NewClientset(cfg config.Kube) (kubernetes.Interface, error) {
	restConfig, err := clientcmd.BuildConfigFromFlags(cfg.APIServerURL, cfg.Kubeconfig)
	if err != nil {
		return nil, autherrors.Wrapf(err, "failed to get rest config")
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, autherrors.Wrapf(err, "failed to create clientset")
	}
	return clientset, nil
}
